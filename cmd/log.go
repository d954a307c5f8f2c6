package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prscore/prscore/internal/gateway"
)

var logFlags struct {
	scorePath string
	repo      string
	prNumber  int
	prTitle   string
	prURL     string
	author    string
	base      string
	head      string
	added     int
	removed   int
	languages []string
	runID     string
	runURL    string
	errNote   string
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Append a score row to the results spreadsheet",
	Long: `Flattens a score JSON file and its pull-request context into one row
and appends it to the configured Google Sheet, writing the header row
first when the sheet is empty. Every run is one row; nothing is ever
updated in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := loadReport(logFlags.scorePath)
		if err != nil {
			return err
		}

		spreadsheetID := viper.GetString("sheets.spreadsheet_id")
		if spreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id not configured")
		}
		creds := os.Getenv(viper.GetString("sheets.credentials_env"))
		if creds == "" {
			return fmt.Errorf("sheets credentials not set (env %s)", viper.GetString("sheets.credentials_env"))
		}

		sink, err := gateway.NewSheetsSink(cmd.Context(), []byte(creds),
			spreadsheetID, viper.GetString("sheets.sheet_name"), newLogger())
		if err != nil {
			return err
		}
		if err := sink.EnsureHeaders(cmd.Context()); err != nil {
			return err
		}

		meta := gateway.RunMeta{
			Repo:           logFlags.repo,
			PRNumber:       logFlags.prNumber,
			PRTitle:        logFlags.prTitle,
			PRURL:          logFlags.prURL,
			Author:         logFlags.author,
			BaseBranch:     logFlags.base,
			HeadBranch:     logFlags.head,
			FilesChanged:   len(report.FilesAnalyzed),
			LinesAdded:     logFlags.added,
			LinesRemoved:   logFlags.removed,
			Languages:      logFlags.languages,
			WorkflowRunID:  logFlags.runID,
			WorkflowRunURL: logFlags.runURL,
			Error:          logFlags.errNote,
		}
		row := gateway.BuildRow(report, meta, time.Now())
		if err := sink.Append(cmd.Context(), row); err != nil {
			return err
		}
		ui.Success("Row appended for %s#%d (score %d)", logFlags.repo, logFlags.prNumber, report.FinalScore)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logFlags.scorePath, "score", "", "Score JSON file from 'prscore score' (required)")
	logCmd.Flags().StringVar(&logFlags.repo, "repo", "", "Repository in owner/name form (required)")
	logCmd.Flags().IntVar(&logFlags.prNumber, "pr", 0, "Pull request number (required)")
	logCmd.Flags().StringVar(&logFlags.prTitle, "pr-title", "", "Pull request title")
	logCmd.Flags().StringVar(&logFlags.prURL, "pr-url", "", "Pull request URL")
	logCmd.Flags().StringVar(&logFlags.author, "author", "", "Pull request author login")
	logCmd.Flags().StringVar(&logFlags.base, "base", "", "Base branch name")
	logCmd.Flags().StringVar(&logFlags.head, "head", "", "Head branch name")
	logCmd.Flags().IntVar(&logFlags.added, "lines-added", 0, "Total lines added")
	logCmd.Flags().IntVar(&logFlags.removed, "lines-removed", 0, "Total lines removed")
	logCmd.Flags().StringSliceVar(&logFlags.languages, "languages", nil, "Languages in the change set")
	logCmd.Flags().StringVar(&logFlags.runID, "workflow-run-id", "", "CI workflow run identifier")
	logCmd.Flags().StringVar(&logFlags.runURL, "workflow-run-url", "", "CI workflow run URL")
	logCmd.Flags().StringVar(&logFlags.errNote, "error", "", "Pipeline error note to record with the row")
	logCmd.MarkFlagRequired("score")
	logCmd.MarkFlagRequired("repo")
	logCmd.MarkFlagRequired("pr")
}
