package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/domain"
	"github.com/prscore/prscore/internal/testrun"
)

var testFlags struct {
	dir           string
	changedFiles  string
	qualityConfig string
	outputPath    string
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Discover and run the repository's tests",
	Long: `Discovers test files in the working tree, runs the test commands from
the quality config, parses the runner output into pass/fail counts, and
attributes the coverage report to the changed files. The combined result
is written as JSON for the score stage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cs *domain.ChangeSet
		if testFlags.changedFiles != "" {
			paths, err := readChangedFiles(testFlags.changedFiles)
			if err != nil {
				return err
			}
			cs = domain.NewChangeSetFromPaths(paths)
		} else {
			cs = domain.NewChangeSetFromPaths(nil)
		}

		cfg, err := config.Load(testFlags.qualityConfig)
		if err != nil && !errors.Is(err, config.ErrConfigMissing) {
			ui.Warning("config degraded to defaults: %v", err)
		}

		runner := testrun.NewRunner(testFlags.dir, newLogger())
		result, err := runner.Run(cmd.Context(), cfg.Tests, cs)
		if err != nil {
			return err
		}
		if err := writeJSON(testFlags.outputPath, result); err != nil {
			return err
		}

		ui.Info("Unit test files: %d, e2e test files: %d", result.UnitCount, result.E2ECount)
		if result.Run > 0 {
			if result.Failed > 0 {
				ui.Warning("Tests: %d run, %d passed, %d failed, %d skipped",
					result.Run, result.Passed, result.Failed, result.Skipped)
			} else {
				ui.Success("Tests: %d run, %d passed, %d skipped", result.Run, result.Passed, result.Skipped)
			}
		} else {
			ui.Info("No tests ran")
		}
		if result.CoverageTotal > 0 {
			ui.Info("Coverage on changed files: %.1f%% (%d/%d lines)",
				result.CoveragePercentage, result.CoverageCovered, result.CoverageTotal)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVar(&testFlags.dir, "dir", ".", "Repository checkout to run tests in")
	testCmd.Flags().StringVar(&testFlags.changedFiles, "changed-files", "", "File listing changed paths for coverage attribution")
	testCmd.Flags().StringVar(&testFlags.qualityConfig, "quality-config", "quality.yml", "Per-repo quality config file")
	testCmd.Flags().StringVarP(&testFlags.outputPath, "output", "o", "", "Output results JSON file (required)")
	testCmd.MarkFlagRequired("output")
}
