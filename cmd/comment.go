package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prscore/prscore/internal/gateway"
	"github.com/prscore/prscore/internal/render"
)

var commentFlags struct {
	scorePath  string
	outputPath string
	repo       string
	prNumber   int
	post       bool
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Render the report comment from a score file",
	Long: `Renders the markdown report comment from a previously computed score
JSON file. By default the markdown is written to a file or stdout; with
--post it is also upserted onto the pull request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := loadReport(commentFlags.scorePath)
		if err != nil {
			return err
		}
		body := render.Markdown(report, time.Now())

		if commentFlags.outputPath != "" {
			if err := os.WriteFile(commentFlags.outputPath, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", commentFlags.outputPath, err)
			}
			ui.Success("Comment written to %s", commentFlags.outputPath)
		} else if !commentFlags.post {
			fmt.Fprint(ui.Out, body)
		}

		if commentFlags.post {
			owner, repo, err := splitRepo(commentFlags.repo)
			if err != nil {
				return err
			}
			token := os.Getenv(viper.GetString("github.token_env"))
			if token == "" {
				return fmt.Errorf("github token not set (env %s)", viper.GetString("github.token_env"))
			}
			host, err := gateway.NewGitHubGateway(token, newLogger())
			if err != nil {
				return err
			}
			if err := host.UpsertComment(cmd.Context(), owner, repo, commentFlags.prNumber, render.CommentMarker, body); err != nil {
				return err
			}
			if err := host.ApplyLabel(cmd.Context(), owner, repo, commentFlags.prNumber, report.Label); err != nil {
				return err
			}
			ui.Success("Comment and label %s applied to %s#%d", report.Label, commentFlags.repo, commentFlags.prNumber)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.Flags().StringVar(&commentFlags.scorePath, "score", "", "Score JSON file from 'prscore score' (required)")
	commentCmd.Flags().StringVarP(&commentFlags.outputPath, "output", "o", "", "Write the markdown to this file instead of stdout")
	commentCmd.Flags().BoolVar(&commentFlags.post, "post", false, "Upsert the comment and label on the pull request")
	commentCmd.Flags().StringVar(&commentFlags.repo, "repo", "", "Repository in owner/name form (required with --post)")
	commentCmd.Flags().IntVar(&commentFlags.prNumber, "pr", 0, "Pull request number (required with --post)")
	commentCmd.MarkFlagRequired("score")
	commentCmd.MarkFlagsRequiredTogether("post", "repo", "pr")
}
