// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/coverage"
	"github.com/prscore/prscore/internal/domain"
	"github.com/prscore/prscore/internal/gateway"
	"github.com/prscore/prscore/internal/lint"
	"github.com/prscore/prscore/internal/render"
	"github.com/prscore/prscore/internal/score"
	"github.com/prscore/prscore/internal/testrun"
)

// Options identifies the pull request to score and the already-produced
// tool result files feeding the run.
type Options struct {
	Owner  string
	Repo   string
	Number int

	ConfigPath       string
	RuffResults      string
	ESLintResults    string
	SwiftLintResults string
	DetektResults    string
	JSCPDResults     string
	TestResults      string

	WorkflowRunID  string
	WorkflowRunURL string
}

// Runner is the use case for one pull-request quality run. It orchestrates
// fetching, normalization, aggregation, and delivery to the sinks.
type Runner struct {
	host   gateway.Host
	sink   gateway.ReportSink
	logger *log.Logger
	now    func() time.Time
}

// NewRunner creates a new Runner instance. sink may be nil when
// spreadsheet logging is not configured.
func NewRunner(host gateway.Host, sink gateway.ReportSink, logger *log.Logger) *Runner {
	return &Runner{
		host:   host,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Run performs the full pipeline for one pull request. Collaborator
// failures after aggregation (comment, label, sheet) are recorded on the
// report rather than returned: the run must always produce a report.
func (r *Runner) Run(ctx context.Context, opts Options) (*domain.QualityReport, error) {
	cfg, cfgErr := config.Load(opts.ConfigPath)
	if errors.Is(cfgErr, config.ErrConfigMissing) {
		return nil, cfgErr
	}

	r.logger.Println("Usecase: Starting quality run...")

	// Fetch PR metadata and the changed file list concurrently.
	var info *gateway.PullRequestInfo
	var cs *domain.ChangeSet
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		info, err = r.host.FetchPullRequest(egCtx, opts.Owner, opts.Repo, opts.Number)
		return err
	})
	eg.Go(func() error {
		var err error
		cs, err = r.host.FetchChangedFiles(egCtx, opts.Owner, opts.Repo, opts.Number)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("usecase: fetch pull request: %w", err)
	}
	r.logger.Printf("Usecase: %d changed files.", cs.Len())

	in := BuildInput(cfg, cs, LocalResults{
		Ruff:      opts.RuffResults,
		ESLint:    opts.ESLintResults,
		SwiftLint: opts.SwiftLintResults,
		Detekt:    opts.DetektResults,
		JSCPD:     opts.JSCPDResults,
		Tests:     opts.TestResults,
	}, r.logger)
	report := score.Compute(in)
	if cfgErr != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("config degraded to defaults: %v", cfgErr))
	}
	r.logger.Printf("Usecase: Score computed: %s", score.Describe(report))

	now := r.now()
	body := render.Markdown(report, now)
	if err := r.host.UpsertComment(ctx, opts.Owner, opts.Repo, opts.Number, render.CommentMarker, body); err != nil {
		r.logger.Printf("Usecase: comment failed: %v", err)
		report.Errors = append(report.Errors, fmt.Sprintf("comment not posted: %v", err))
	}
	if err := r.host.ApplyLabel(ctx, opts.Owner, opts.Repo, opts.Number, report.Label); err != nil {
		r.logger.Printf("Usecase: label failed: %v", err)
		report.Errors = append(report.Errors, fmt.Sprintf("label not applied: %v", err))
	}

	if r.sink != nil {
		meta := buildMeta(opts, info, cs, cfg)
		row := gateway.BuildRow(report, meta, now)
		if err := r.sink.Append(ctx, row); err != nil {
			r.logger.Printf("Usecase: sheet append failed: %v", err)
			report.Errors = append(report.Errors, fmt.Sprintf("sheet row not appended: %v", err))
		}
	}

	r.logger.Println("Usecase: Quality run complete.")
	return report, nil
}

// LocalResults holds the paths of the tool result files on disk.
type LocalResults struct {
	Ruff      string
	ESLint    string
	SwiftLint string
	Detekt    string
	JSCPD     string
	Tests     string
}

// BuildInput normalizes all local tool output into a score.Input. Parse
// failures degrade the affected categories to 0 via Input.Failed instead
// of aborting; the aggregator records them on the report.
func BuildInput(cfg config.Config, cs *domain.ChangeSet, results LocalResults, logger *log.Logger) score.Input {
	failed := make(map[domain.Category]string)

	var diags []domain.Diagnostic
	var lintErrs []string
	sourcePaths := map[string]string{
		"ruff":      results.Ruff,
		"eslint":    results.ESLint,
		"swiftlint": results.SwiftLint,
		"detekt":    results.Detekt,
	}
	for _, src := range lint.Sources() {
		got, err := lint.ParseFile(src, sourcePaths[src.Name()], cs)
		if err != nil {
			logger.Printf("Usecase: %v", err)
			lintErrs = append(lintErrs, err.Error())
			continue
		}
		diags = append(diags, got...)
	}
	if len(lintErrs) > 0 {
		msg := strings.Join(lintErrs, "; ")
		failed[domain.CategoryComplexity] = msg
		failed[domain.CategorySmells] = msg
	}

	dup, err := lint.ParseJSCPDFile(results.JSCPD)
	if err != nil {
		logger.Printf("Usecase: %v", err)
		failed[domain.CategoryDuplication] = err.Error()
	}

	testResult, err := testrun.LoadResult(results.Tests)
	if err != nil {
		logger.Printf("Usecase: %v", err)
		failed[domain.CategoryTestResults] = err.Error()
	}
	samples := testResult.CoverageByFile
	if len(samples) == 0 && cfg.Tests.CoverageFile != "" {
		samples, err = coverage.ParseFile(cfg.Tests.CoverageFile, cs)
		if err != nil {
			logger.Printf("Usecase: %v", err)
			failed[domain.CategoryCoverage] = err.Error()
		}
	}

	outcome := testResult.TestOutcome
	return score.Input{
		ChangeSet:       cs,
		Diagnostics:     diags,
		Duplication:     dup,
		CoverageSamples: samples,
		Outcome:         &outcome,
		Presence:        testResult.TestPresence,
		TestsEnabled:    cfg.Tests.Enabled,
		E2ERequired:     cfg.E2E.Required,
		Weights:         cfg.Weights,
		Threshold:       cfg.Threshold,
		MinUnitTests:    cfg.MinUnitTests,
		Failed:          failed,
	}
}

func buildMeta(opts Options, info *gateway.PullRequestInfo, cs *domain.ChangeSet, cfg config.Config) gateway.RunMeta {
	meta := gateway.RunMeta{
		Repo:           opts.Owner + "/" + opts.Repo,
		PRNumber:       opts.Number,
		FilesChanged:   cs.Len(),
		LinesAdded:     cs.TotalAdditions(),
		LinesRemoved:   cs.TotalDeletions(),
		Languages:      cs.Languages(),
		WorkflowRunID:  opts.WorkflowRunID,
		WorkflowRunURL: opts.WorkflowRunURL,
	}
	if info != nil {
		meta.PRTitle = info.Title
		meta.PRURL = info.URL
		meta.Author = info.Author
		meta.BaseBranch = info.BaseBranch
		meta.HeadBranch = info.HeadBranch
	}
	if cfgJSON, err := json.Marshal(cfg); err == nil {
		meta.ConfigJSON = string(cfgJSON)
	}
	return meta
}
