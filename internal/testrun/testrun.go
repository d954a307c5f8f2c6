// Package testrun executes the repository's configured test commands,
// parses runner output into pass/fail counts, and detects which kinds of
// test files exist.
package testrun

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/coverage"
	"github.com/prscore/prscore/internal/domain"
)

// CommandTimeout bounds each setup or test command.
const CommandTimeout = 10 * time.Minute

// Result is the collector's output, consumed by the score aggregator and
// serialized between the `test` and `score` pipeline stages.
type Result struct {
	domain.TestOutcome
	domain.TestPresence
	CoveragePercentage float64                 `json:"coverage_percentage"`
	CoverageCovered    int                     `json:"coverage_covered_lines"`
	CoverageTotal      int                     `json:"coverage_total_lines"`
	CoverageByFile     []domain.CoverageSample `json:"coverage_by_file,omitempty"`
}

// LoadResult reads a previously written Result JSON. A missing path yields
// a zero Result, matching a pipeline where the test stage never ran.
func LoadResult(path string) (Result, error) {
	if path == "" {
		return Result{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("testrun: read results %s: %w", path, err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("testrun: parse results %s: %w", path, err)
	}
	return res, nil
}

// Runner executes the configured test commands in a working directory.
type Runner struct {
	Dir    string
	logger *log.Logger
}

// NewRunner creates a Runner rooted at dir.
func NewRunner(dir string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Runner{Dir: dir, logger: logger}
}

// Run discovers test files, executes the configured setup and test
// commands, parses their output, and attributes the coverage report(s) to
// the change set. Command failures degrade to recorded failures; Run only
// errors when the working directory itself is unusable.
func (r *Runner) Run(ctx context.Context, cfg config.Tests, cs *domain.ChangeSet) (Result, error) {
	var res Result
	presence, err := FindTests(r.Dir)
	if err != nil {
		return res, fmt.Errorf("testrun: discover tests: %w", err)
	}
	res.TestPresence = presence

	if !cfg.Enabled {
		r.logger.Println("testrun: tests not enabled in config")
		return res, nil
	}

	for _, cmd := range cfg.Setup {
		r.logger.Printf("testrun: setup: %s", cmd)
		if _, _, err := r.exec(ctx, cmd); err != nil {
			r.logger.Printf("testrun: setup command failed: %v", err)
		}
	}

	commands := commandList(cfg)
	for _, cmd := range commands {
		r.logger.Printf("testrun: running: %s", cmd)
		stdout, stderr, err := r.exec(ctx, cmd)
		if err != nil {
			r.logger.Printf("testrun: test command exited with error: %v", err)
		}
		outcome := ParseOutput(stdout, stderr)
		res.Run += outcome.Run
		res.Passed += outcome.Passed
		res.Failed += outcome.Failed
		res.Skipped += outcome.Skipped
		res.Failures = append(res.Failures, outcome.Failures...)
	}

	samples := r.collectCoverage(cfg, cs)
	summary := coverage.Summarize(samples)
	res.CoveragePercentage = summary.Percentage
	res.CoverageCovered = summary.CoveredLines
	res.CoverageTotal = summary.TotalLines
	res.CoverageByFile = summary.ByFile
	return res, nil
}

func commandList(cfg config.Tests) []string {
	if cfg.Command != "" {
		return []string{cfg.Command}
	}
	langs := make([]string, 0, len(cfg.Commands))
	for lang := range cfg.Commands {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	out := make([]string, 0, len(langs))
	for _, lang := range langs {
		out = append(out, cfg.Commands[lang])
	}
	return out
}

func (r *Runner) exec(ctx context.Context, command string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// collectCoverage parses the configured coverage report plus any
// per-language reports, merging their samples.
func (r *Runner) collectCoverage(cfg config.Tests, cs *domain.ChangeSet) []domain.CoverageSample {
	var samples []domain.CoverageSample
	files := make([]string, 0, 1+len(cfg.CoverageFiles))
	if cfg.CoverageFile != "" {
		files = append(files, cfg.CoverageFile)
	}
	langs := make([]string, 0, len(cfg.CoverageFiles))
	for lang := range cfg.CoverageFiles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		files = append(files, cfg.CoverageFiles[lang])
	}
	for _, f := range files {
		got, err := coverage.ParseFile(r.resolve(f), cs)
		if err != nil {
			r.logger.Printf("testrun: %v", err)
			continue
		}
		samples = append(samples, got...)
	}
	return samples
}

func (r *Runner) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Dir, p)
}

// unitPatterns match test file basenames across the supported languages.
var unitPatterns = []string{
	"test_*.py", "*_test.py",
	"*.test.js", "*.spec.js", "*.test.ts", "*.spec.ts",
	"*Test.kt", "*Test.java",
	"*Tests.swift", "*Spec.swift",
}

// e2eKeywords in a path classify a test file as end-to-end.
var e2eKeywords = []string{"e2e", "integration", "cypress", "playwright", "selenium"}

// skipDirs are never descended into during test discovery.
var skipDirs = map[string]bool{
	"node_modules": true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".git":         true,
}

// FindTests walks the tree under root and classifies test files as unit or
// end-to-end. Classification is by path keyword, not by execution.
func FindTests(root string) (domain.TestPresence, error) {
	var presence domain.TestPresence
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchesUnitPattern(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)
		if isE2EPath(rel) {
			presence.E2EFound = true
			presence.E2ECount++
		} else {
			presence.UnitFound = true
			presence.UnitCount++
			presence.UnitFiles = append(presence.UnitFiles, rel)
		}
		return nil
	})
	if err != nil {
		return domain.TestPresence{}, err
	}
	sort.Strings(presence.UnitFiles)
	return presence, nil
}

func matchesUnitPattern(name string) bool {
	for _, pattern := range unitPatterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func isE2EPath(p string) bool {
	lower := strings.ToLower(p)
	for _, kw := range e2eKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var (
	passedRe   = regexp.MustCompile(`(\d+) passed`)
	failedRe   = regexp.MustCompile(`(\d+) failed`)
	skippedRe  = regexp.MustCompile(`(\d+) skipped`)
	jestRe     = regexp.MustCompile(`Tests:\s+(\d+)\s+passed`)
	failLineRe = []*regexp.Regexp{
		regexp.MustCompile(`FAILED\s+(\S+)`),
		regexp.MustCompile(`✕\s+(.+)`),
		regexp.MustCompile(`FAIL\s+(\S+)`),
	}
)

// ParseOutput extracts pass/fail counts from pytest- or jest-style runner
// output. Unrecognized output yields a zero outcome.
func ParseOutput(stdout, stderr string) domain.TestOutcome {
	var out domain.TestOutcome
	combined := stdout + "\n" + stderr

	if m := passedRe.FindStringSubmatch(combined); m != nil {
		out.Passed, _ = strconv.Atoi(m[1])
	}
	if m := jestRe.FindStringSubmatch(combined); m != nil {
		out.Passed, _ = strconv.Atoi(m[1])
	}
	if m := failedRe.FindStringSubmatch(combined); m != nil {
		out.Failed, _ = strconv.Atoi(m[1])
	}
	if m := skippedRe.FindStringSubmatch(combined); m != nil {
		out.Skipped, _ = strconv.Atoi(m[1])
	}
	out.Run = out.Passed + out.Failed + out.Skipped

	for _, re := range failLineRe {
		for _, m := range re.FindAllStringSubmatch(combined, 5) {
			out.Failures = append(out.Failures, strings.TrimSpace(m[1]))
			if len(out.Failures) >= 5 {
				return out
			}
		}
	}
	return out
}
