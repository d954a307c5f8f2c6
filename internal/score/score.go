// Package score turns normalized diagnostics, coverage samples, and test
// results into the final quality report. All logic here is deterministic
// and pure; no I/O and no external calls.
package score

import (
	"fmt"
	"math"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/coverage"
	"github.com/prscore/prscore/internal/domain"
)

// Input carries everything Compute needs for one pull-request run.
// Malformed or missing collaborator output never reaches Compute as an
// error value: callers record tool failures in Failed and the affected
// category scores zero with an explanatory note.
type Input struct {
	ChangeSet       *domain.ChangeSet
	Diagnostics     []domain.Diagnostic
	Duplication     domain.DuplicationStats
	CoverageSamples []domain.CoverageSample
	Outcome         *domain.TestOutcome
	Presence        domain.TestPresence
	TestsEnabled    bool
	E2ERequired     bool
	Weights         config.Weights
	Threshold       int
	MinUnitTests    int
	// Failed maps a category to the reason its producing tool did not run.
	// A failed category always scores zero; it must never inflate the total.
	Failed map[domain.Category]string
}

// Compute aggregates all inputs into a QualityReport. The total is the
// clamped [0,100] sum of category scores and the verdict is
// total >= threshold, exactly.
func Compute(in Input) *domain.QualityReport {
	var errs []string
	fail := func(cat domain.Category) (string, bool) {
		msg, ok := in.Failed[cat]
		return msg, ok
	}

	complexity, smells := splitDiagnostics(in)

	complexityScore := penaltyScore(complexity, in.Weights.Complexity)
	if msg, ok := fail(domain.CategoryComplexity); ok {
		complexityScore = zeroDiagnosticScore(in.Weights.Complexity)
		errs = append(errs, "complexity scored 0: "+msg)
	}
	smellsScore := penaltyScore(smells, in.Weights.Smells)
	if msg, ok := fail(domain.CategorySmells); ok {
		smellsScore = zeroDiagnosticScore(in.Weights.Smells)
		errs = append(errs, "smells scored 0: "+msg)
	}

	dupScore := duplicationScore(in.Duplication, in.Weights.Duplication)
	if msg, ok := fail(domain.CategoryDuplication); ok {
		dupScore.Earned = 0
		dupScore.Penalty = dupScore.Max
		errs = append(errs, "duplication scored 0: "+msg)
	}

	covSummary := coverage.Summarize(in.CoverageSamples)
	covScore := coverageScore(covSummary, in.Weights.Coverage)
	switch {
	case !in.TestsEnabled:
		covScore.Earned = 0
		errs = append(errs, "coverage scored 0: tests disabled in config")
	case hasFailed(in, domain.CategoryCoverage):
		covScore.Earned = 0
		errs = append(errs, "coverage scored 0: "+in.Failed[domain.CategoryCoverage])
	case covSummary.TotalLines == 0:
		// No coverage produced for any changed file counts as 0%, not
		// as full marks.
		covScore.Earned = 0
		errs = append(errs, "coverage scored 0: no coverage data for changed files")
	}

	resScore := resultsScore(in)
	switch {
	case !in.TestsEnabled:
		resScore.Earned = 0
		errs = append(errs, "test results scored 0: tests disabled in config")
	case hasFailed(in, domain.CategoryTestResults):
		resScore.Earned = 0
		errs = append(errs, "test results scored 0: "+in.Failed[domain.CategoryTestResults])
	case in.Outcome == nil || in.Outcome.Passed+in.Outcome.Failed == 0:
		errs = append(errs, "test results scored 0: no tests ran")
	}

	unitScore, e2eScore := presenceScores(in)
	if msg, ok := fail(domain.CategoryUnitPresence); ok {
		unitScore.Earned = 0
		errs = append(errs, "unit test presence scored 0: "+msg)
	}
	if msg, ok := fail(domain.CategoryE2EPresence); ok && in.E2ERequired {
		e2eScore.Earned = 0
		errs = append(errs, "e2e test presence scored 0: "+msg)
	}

	report := &domain.QualityReport{
		Threshold: in.Threshold,
		Breakdown: domain.Breakdown{
			CodeQuality: domain.CodeQualityBreakdown{
				Complexity:  complexityScore,
				Smells:      smellsScore,
				Duplication: dupScore,
			},
			TestHealth: domain.TestHealthBreakdown{
				Coverage: covScore,
				Results:  resScore,
			},
			TestPresence: domain.TestPresenceBreakdown{
				Unit: unitScore,
				E2E:  e2eScore,
			},
		},
		Errors: errs,
	}
	if in.ChangeSet != nil {
		report.FilesAnalyzed = in.ChangeSet.Paths()
	}

	cq := &report.Breakdown.CodeQuality
	cq.Total = cq.Complexity.Earned + cq.Smells.Earned + cq.Duplication.Earned
	cq.Max = cq.Complexity.Max + cq.Smells.Max + cq.Duplication.Max

	th := &report.Breakdown.TestHealth
	th.Total = th.Coverage.Earned + th.Results.Earned
	th.Max = th.Coverage.Max + th.Results.Max

	tp := &report.Breakdown.TestPresence
	tp.Total = tp.Unit.Earned + tp.E2E.Earned
	tp.Max = tp.Unit.Max + tp.E2E.Max

	total := cq.Total + th.Total + tp.Total
	report.FinalScore = clampScore(total)
	report.Passed = report.FinalScore >= in.Threshold
	report.Label = domain.LabelFor(report.FinalScore)
	return report
}

func hasFailed(in Input, cat domain.Category) bool {
	_, ok := in.Failed[cat]
	return ok
}

// splitDiagnostics enforces the change-set invariant, de-duplicates, and
// partitions findings into complexity and smells. Diagnostics on files
// outside the change set never influence the score.
func splitDiagnostics(in Input) (complexity, smells []domain.Diagnostic) {
	for _, d := range domain.DedupDiagnostics(in.Diagnostics) {
		if in.ChangeSet != nil && !in.ChangeSet.Contains(d.File) {
			continue
		}
		switch d.Category {
		case domain.CategoryComplexity:
			complexity = append(complexity, d)
		default:
			smells = append(smells, d)
		}
	}
	return complexity, smells
}

// penaltyScore starts at max and subtracts each finding's severity weight,
// flooring at zero. Adding a finding can never increase the score.
func penaltyScore(diags []domain.Diagnostic, max float64) domain.DiagnosticScore {
	penalty := 0.0
	for _, d := range diags {
		penalty += d.Severity.PenaltyPoints()
	}
	if penalty > max {
		penalty = max
	}
	return domain.DiagnosticScore{
		CategoryScore: domain.CategoryScore{Earned: max - penalty, Max: max},
		Penalty:       penalty,
		Count:         len(diags),
		Issues:        diags,
	}
}

func zeroDiagnosticScore(max float64) domain.DiagnosticScore {
	return domain.DiagnosticScore{
		CategoryScore: domain.CategoryScore{Earned: 0, Max: max},
		Penalty:       max,
	}
}

// duplicationScore maps the duplication percentage linearly: 0% earns the
// full budget, 20% or more earns nothing.
func duplicationScore(dup domain.DuplicationStats, max float64) domain.DuplicationScore {
	pct := dup.Percentage
	if pct < 0 {
		pct = 0
	}
	if pct > 20 {
		pct = 20
	}
	penalty := round1(max * pct / 20)
	return domain.DuplicationScore{
		CategoryScore: domain.CategoryScore{Earned: round1(max - penalty), Max: max},
		Penalty:       penalty,
		Percentage:    dup.Percentage,
		Clones:        dup.Clones,
	}
}

// coverageScore maps the aggregate percentage through the step table:
// >=80% full, >=60% three quarters, >=40% half, >=20% a quarter, else 0.
func coverageScore(s coverage.Summary, max float64) domain.CoverageScore {
	var earned float64
	switch {
	case s.Percentage >= 80:
		earned = max
	case s.Percentage >= 60:
		earned = round1(max * 0.75)
	case s.Percentage >= 40:
		earned = round1(max * 0.5)
	case s.Percentage >= 20:
		earned = round1(max * 0.25)
	}
	return domain.CoverageScore{
		CategoryScore: domain.CategoryScore{Earned: earned, Max: max},
		Percentage:    s.Percentage,
		CoveredLines:  s.CoveredLines,
		TotalLines:    s.TotalLines,
		MeanPerFile:   s.MeanPerFile,
		MedianPerFile: s.MedianPerFile,
		ByFile:        s.ByFile,
	}
}

// resultsScore awards the pass rate proportionally. Zero tests earns zero;
// distinguishing "no tests ran" from "tests disabled" is the caller's job
// via TestsEnabled.
func resultsScore(in Input) domain.ResultsScore {
	out := domain.ResultsScore{
		CategoryScore: domain.CategoryScore{Max: in.Weights.TestResults},
	}
	if in.Outcome == nil {
		return out
	}
	out.Outcome = *in.Outcome
	total := in.Outcome.Passed + in.Outcome.Failed
	if total == 0 {
		return out
	}
	out.Earned = math.Round(float64(in.Outcome.Passed) / float64(total) * in.Weights.TestResults)
	return out
}

// presenceScores awards credit for tests existing at all. When e2e tests
// are not required, the e2e budget folds into the unit presence max so the
// achievable ceiling stays at 100 without rescaling other categories.
func presenceScores(in Input) (domain.PresenceScore, domain.E2EScore) {
	unitMax := in.Weights.UnitPresence
	e2e := domain.E2EScore{Required: in.E2ERequired}
	e2e.Found = in.Presence.E2EFound
	e2e.Count = in.Presence.E2ECount
	if in.E2ERequired {
		e2e.Max = in.Weights.E2EPresence
		if in.Presence.E2EFound {
			e2e.Earned = e2e.Max
		}
	} else {
		unitMax += in.Weights.E2EPresence
	}

	unit := domain.PresenceScore{
		CategoryScore: domain.CategoryScore{Max: unitMax},
		Found:         in.Presence.UnitFound,
		Count:         in.Presence.UnitCount,
		Files:         in.Presence.UnitFiles,
	}
	switch {
	case in.Presence.UnitFound && in.Presence.UnitCount >= in.MinUnitTests:
		unit.Earned = unitMax
	case in.Presence.UnitFound:
		unit.Earned = round1(unitMax / 2)
	}
	return unit, e2e
}

func clampScore(total float64) int {
	n := int(math.Round(total))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Describe returns a short human-readable summary line for logs.
func Describe(r *domain.QualityReport) string {
	status := "FAIL"
	if r.Passed {
		status = "PASS"
	}
	return fmt.Sprintf("%d/100 (%s, threshold %d)", r.FinalScore, status, r.Threshold)
}
