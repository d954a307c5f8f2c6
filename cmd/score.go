package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/domain"
	"github.com/prscore/prscore/internal/output"
	"github.com/prscore/prscore/internal/score"
	"github.com/prscore/prscore/internal/usecase"
)

var scoreFlags struct {
	changedFiles  string
	qualityConfig string
	ruff          string
	eslint        string
	swiftlint     string
	detekt        string
	jscpd         string
	testResults   string
	threshold     int
	outputPath    string
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the quality score from local result files",
	Long: `Computes the quality score offline from already-produced tool result
files and a changed-files list, writing the full report as JSON. No network
access is needed; this is the aggregation stage of the pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := readChangedFiles(scoreFlags.changedFiles)
		if err != nil {
			return err
		}
		cs := domain.NewChangeSetFromPaths(paths)

		cfg, err := config.Load(scoreFlags.qualityConfig)
		if err != nil && !errors.Is(err, config.ErrConfigMissing) {
			ui.Warning("config degraded to defaults: %v", err)
		}
		if cmd.Flags().Changed("threshold") {
			cfg.Threshold = scoreFlags.threshold
		}

		logger := newLogger()
		in := usecase.BuildInput(cfg, cs, usecase.LocalResults{
			Ruff:      scoreFlags.ruff,
			ESLint:    scoreFlags.eslint,
			SwiftLint: scoreFlags.swiftlint,
			Detekt:    scoreFlags.detekt,
			JSCPD:     scoreFlags.jscpd,
			Tests:     scoreFlags.testResults,
		}, logger)
		report := score.Compute(in)

		if err := writeJSON(scoreFlags.outputPath, report); err != nil {
			return err
		}
		printReportSummary(report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scoreFlags.changedFiles, "changed-files", "", "File listing changed paths, one per line (required)")
	scoreCmd.Flags().StringVar(&scoreFlags.qualityConfig, "quality-config", "quality.yml", "Per-repo quality config file")
	scoreCmd.Flags().StringVar(&scoreFlags.ruff, "ruff-results", "", "Ruff JSON results")
	scoreCmd.Flags().StringVar(&scoreFlags.eslint, "eslint-results", "", "ESLint JSON results")
	scoreCmd.Flags().StringVar(&scoreFlags.swiftlint, "swiftlint-results", "", "SwiftLint JSON results")
	scoreCmd.Flags().StringVar(&scoreFlags.detekt, "detekt-results", "", "Detekt JSON results")
	scoreCmd.Flags().StringVar(&scoreFlags.jscpd, "jscpd-results", "", "jscpd JSON results")
	scoreCmd.Flags().StringVar(&scoreFlags.testResults, "test-results", "", "Test results JSON (from 'prscore test')")
	scoreCmd.Flags().IntVar(&scoreFlags.threshold, "threshold", 70, "Pass threshold override")
	scoreCmd.Flags().StringVarP(&scoreFlags.outputPath, "output", "o", "", "Output JSON file (required)")
	scoreCmd.MarkFlagRequired("changed-files")
	scoreCmd.MarkFlagRequired("output")
}

// readChangedFiles loads the changed-paths list, skipping blank lines.
func readChangedFiles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read changed files %s: %w", path, err)
	}
	defer f.Close()
	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan changed files %s: %w", path, err)
	}
	return paths, nil
}

// writeJSON pretty-prints v to path, creating parent directories.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// loadReport reads a previously written score JSON file.
func loadReport(path string) (*domain.QualityReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score file %s: %w", path, err)
	}
	var report domain.QualityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse score file %s: %w", path, err)
	}
	return &report, nil
}

// printReportSummary renders the per-category table and final verdict.
func printReportSummary(r *domain.QualityReport) {
	table := ui.Table([]string{"Category", "Earned", "Max"})
	bd := r.Breakdown
	table.Append([]string{"Code Quality", formatScore(bd.CodeQuality.Total), formatScore(bd.CodeQuality.Max)})
	table.Append([]string{"Test Health", formatScore(bd.TestHealth.Total), formatScore(bd.TestHealth.Max)})
	table.Append([]string{"Test Presence", formatScore(bd.TestPresence.Total), formatScore(bd.TestPresence.Max)})
	table.Render()

	if r.Passed {
		ui.Success("Score: %s/100 (threshold %d, %s)", output.ScoreColor(r.FinalScore), r.Threshold, r.Label)
	} else {
		ui.Error("Score: %s/100 (threshold %d, %s)", output.ScoreColor(r.FinalScore), r.Threshold, r.Label)
	}
	for _, e := range r.Errors {
		ui.Warning("%s", e)
	}
}

func formatScore(f float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", f), ".0")
}
