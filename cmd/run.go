package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/gateway"
	"github.com/prscore/prscore/internal/usecase"
)

var runFlags struct {
	repo          string
	prNumber      int
	qualityConfig string
	ruff          string
	eslint        string
	swiftlint     string
	detekt        string
	jscpd         string
	testResults   string
	runID         string
	runURL        string
	outputPath    string
	noSheets      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full quality pipeline against a pull request",
	Long: `Runs the complete pipeline: fetches the pull request and its changed
files from GitHub, scores the local tool results against them, then posts
the report comment, applies the quality label, and appends a row to the
results spreadsheet when one is configured.

A repository without a quality config file is skipped, not failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := splitRepo(runFlags.repo)
		if err != nil {
			return err
		}

		token := os.Getenv(viper.GetString("github.token_env"))
		if token == "" {
			return fmt.Errorf("github token not set (env %s)", viper.GetString("github.token_env"))
		}
		logger := newLogger()
		host, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			return err
		}

		var sink gateway.ReportSink
		spreadsheetID := viper.GetString("sheets.spreadsheet_id")
		if !runFlags.noSheets && spreadsheetID != "" {
			creds := os.Getenv(viper.GetString("sheets.credentials_env"))
			if creds == "" {
				ui.Warning("sheet logging skipped: env %s not set", viper.GetString("sheets.credentials_env"))
			} else {
				sheetsSink, err := gateway.NewSheetsSink(cmd.Context(), []byte(creds),
					spreadsheetID, viper.GetString("sheets.sheet_name"), logger)
				if err != nil {
					ui.Warning("sheet logging skipped: %v", err)
				} else {
					if err := sheetsSink.EnsureHeaders(cmd.Context()); err != nil {
						ui.Warning("sheet headers not verified: %v", err)
					}
					sink = sheetsSink
				}
			}
		}

		runner := usecase.NewRunner(host, sink, logger)
		report, err := runner.Run(cmd.Context(), usecase.Options{
			Owner:            owner,
			Repo:             repo,
			Number:           runFlags.prNumber,
			ConfigPath:       runFlags.qualityConfig,
			RuffResults:      runFlags.ruff,
			ESLintResults:    runFlags.eslint,
			SwiftLintResults: runFlags.swiftlint,
			DetektResults:    runFlags.detekt,
			JSCPDResults:     runFlags.jscpd,
			TestResults:      runFlags.testResults,
			WorkflowRunID:    runFlags.runID,
			WorkflowRunURL:   runFlags.runURL,
		})
		if errors.Is(err, config.ErrConfigMissing) {
			ui.Info("no quality config in repository, skipping quality check")
			return nil
		}
		if err != nil {
			return err
		}

		if runFlags.outputPath != "" {
			if err := writeJSON(runFlags.outputPath, report); err != nil {
				return err
			}
		}
		printReportSummary(report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFlags.repo, "repo", "", "Repository in owner/name form (required)")
	runCmd.Flags().IntVar(&runFlags.prNumber, "pr", 0, "Pull request number (required)")
	runCmd.Flags().StringVar(&runFlags.qualityConfig, "quality-config", "quality.yml", "Per-repo quality config file")
	runCmd.Flags().StringVar(&runFlags.ruff, "ruff-results", "", "Ruff JSON results")
	runCmd.Flags().StringVar(&runFlags.eslint, "eslint-results", "", "ESLint JSON results")
	runCmd.Flags().StringVar(&runFlags.swiftlint, "swiftlint-results", "", "SwiftLint JSON results")
	runCmd.Flags().StringVar(&runFlags.detekt, "detekt-results", "", "Detekt JSON results")
	runCmd.Flags().StringVar(&runFlags.jscpd, "jscpd-results", "", "jscpd JSON results")
	runCmd.Flags().StringVar(&runFlags.testResults, "test-results", "", "Test results JSON (from 'prscore test')")
	runCmd.Flags().StringVar(&runFlags.runID, "workflow-run-id", "", "CI workflow run identifier")
	runCmd.Flags().StringVar(&runFlags.runURL, "workflow-run-url", "", "CI workflow run URL")
	runCmd.Flags().StringVarP(&runFlags.outputPath, "output", "o", "", "Also write the report JSON to this file")
	runCmd.Flags().BoolVar(&runFlags.noSheets, "no-sheets", false, "Disable spreadsheet logging for this run")
	runCmd.MarkFlagRequired("repo")
	runCmd.MarkFlagRequired("pr")
}

func splitRepo(s string) (string, string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", s)
	}
	return parts[0], parts[1], nil
}
