// Package domain contains the core data structures and domain logic for the application.
package domain

import "fmt"

// Severity classifies how heavily a single linter finding is penalized.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// PenaltyPoints returns the deduction a finding of this severity costs.
// High=4, medium=2, low=1.
func (s Severity) PenaltyPoints() float64 {
	switch s {
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category identifies one scoring dimension of the quality report.
type Category string

const (
	CategoryComplexity   Category = "complexity"
	CategorySmells       Category = "smells"
	CategoryDuplication  Category = "duplication"
	CategoryCoverage     Category = "coverage"
	CategoryTestResults  Category = "test_results"
	CategoryUnitPresence Category = "unit_presence"
	CategoryE2EPresence  Category = "e2e_presence"
)

// Diagnostic is a single normalized linter finding, restricted to changed files.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
}

// Key identifies a diagnostic for deduplication. Two findings with the same
// file, line, and rule count once toward the penalty.
func (d Diagnostic) Key() string {
	return fmt.Sprintf("%s:%d:%s", d.File, d.Line, d.Rule)
}

// DedupDiagnostics drops diagnostics sharing the same {file, line, rule}
// key so a finding reported twice penalizes once. Input order is preserved.
func DedupDiagnostics(diags []Diagnostic) []Diagnostic {
	seen := make(map[string]bool, len(diags))
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		k := d.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// DuplicationStats summarizes a duplication tool run (jscpd).
type DuplicationStats struct {
	Percentage      float64          `json:"percentage"`
	TotalLines      int              `json:"total_lines"`
	DuplicatedLines int              `json:"duplicated_lines"`
	Clones          []DuplicatedPair `json:"clones,omitempty"`
}

// DuplicatedPair records one detected clone between two files.
type DuplicatedPair struct {
	FirstFile  string `json:"first_file"`
	SecondFile string `json:"second_file"`
	Lines      int    `json:"lines"`
	Tokens     int    `json:"tokens"`
}

// CoverageSample holds covered/executable line counts for one changed file.
// Counts are taken over de-duplicated line-number sets, so a line reported
// twice by the coverage tool is measured once.
type CoverageSample struct {
	File         string  `json:"file"`
	CoveredLines int     `json:"covered_lines"`
	TotalLines   int     `json:"total_lines"`
	Percentage   float64 `json:"coverage"`
}

// TestOutcome captures the pass/fail summary of one test run.
type TestOutcome struct {
	Run      int      `json:"tests_run"`
	Passed   int      `json:"tests_passed"`
	Failed   int      `json:"tests_failed"`
	Skipped  int      `json:"tests_skipped"`
	Failures []string `json:"failures,omitempty"`
}

// TestPresence records which kinds of test files exist in the repository,
// independent of whether they ran.
type TestPresence struct {
	UnitFound bool     `json:"unit_tests_found"`
	UnitCount int      `json:"unit_tests_count"`
	UnitFiles []string `json:"unit_test_files,omitempty"`
	E2EFound  bool     `json:"e2e_tests_found"`
	E2ECount  int      `json:"e2e_tests_count"`
}

// CategoryScore is an earned/max point pair for one scoring dimension.
type CategoryScore struct {
	Earned float64 `json:"score"`
	Max    float64 `json:"max"`
}

// DiagnosticScore is a category score driven by per-finding penalties.
type DiagnosticScore struct {
	CategoryScore
	Penalty float64      `json:"penalty"`
	Count   int          `json:"issues_count"`
	Issues  []Diagnostic `json:"issues,omitempty"`
}

// DuplicationScore is the duplication category score.
type DuplicationScore struct {
	CategoryScore
	Penalty    float64          `json:"penalty"`
	Percentage float64          `json:"percentage"`
	Clones     []DuplicatedPair `json:"clones,omitempty"`
}

// CoverageScore is the coverage category score with its supporting data.
type CoverageScore struct {
	CategoryScore
	Percentage    float64          `json:"percentage"`
	CoveredLines  int              `json:"covered_lines"`
	TotalLines    int              `json:"total_lines"`
	MeanPerFile   float64          `json:"mean_per_file"`
	MedianPerFile float64          `json:"median_per_file"`
	ByFile        []CoverageSample `json:"by_file,omitempty"`
}

// ResultsScore is the test-results category score.
type ResultsScore struct {
	CategoryScore
	Outcome TestOutcome `json:"outcome"`
}

// PresenceScore is a test-presence category score.
type PresenceScore struct {
	CategoryScore
	Found bool     `json:"found"`
	Count int      `json:"count"`
	Files []string `json:"files,omitempty"`
}

// E2EScore extends PresenceScore with the required flag. When e2e tests are
// not required the category is excluded and its budget folds into unit presence.
type E2EScore struct {
	PresenceScore
	Required bool `json:"required"`
}

// GroupScore subtotals one of the three top-level report sections.
type GroupScore struct {
	Total float64 `json:"total"`
	Max   float64 `json:"max"`
}

// CodeQualityBreakdown groups the static-analysis categories.
type CodeQualityBreakdown struct {
	GroupScore
	Complexity  DiagnosticScore  `json:"complexity"`
	Smells      DiagnosticScore  `json:"smells"`
	Duplication DuplicationScore `json:"duplication"`
}

// TestHealthBreakdown groups the dynamic test categories.
type TestHealthBreakdown struct {
	GroupScore
	Coverage CoverageScore `json:"coverage"`
	Results  ResultsScore  `json:"results"`
}

// TestPresenceBreakdown groups the presence categories.
type TestPresenceBreakdown struct {
	GroupScore
	Unit PresenceScore `json:"unit_tests"`
	E2E  E2EScore      `json:"e2e"`
}

// Breakdown is the full per-category decomposition of the final score.
type Breakdown struct {
	CodeQuality  CodeQualityBreakdown  `json:"code_quality"`
	TestHealth   TestHealthBreakdown   `json:"test_health"`
	TestPresence TestPresenceBreakdown `json:"test_presence"`
}

// QualityReport is the final immutable result of one pull-request run.
// FinalScore is the clamped sum of all category scores; Errors carries
// per-category degradation notes so a partial pipeline failure still
// produces an explainable report.
type QualityReport struct {
	FinalScore    int       `json:"final_score"`
	Threshold     int       `json:"threshold"`
	Passed        bool      `json:"passed"`
	Label         string    `json:"label"`
	Breakdown     Breakdown `json:"breakdown"`
	FilesAnalyzed []string  `json:"files_analyzed"`
	Errors        []string  `json:"errors,omitempty"`
}

// Quality labels applied to the pull request by score band.
const (
	LabelExcellent = "quality:excellent"
	LabelGood      = "quality:good"
	LabelNeedsWork = "quality:needs-work"
	LabelPoor      = "quality:poor"
)

// LabelFor maps a final score to its quality label.
// Bands: >=85 excellent, 70-84 good, 55-69 needs-work, <55 poor.
func LabelFor(score int) string {
	switch {
	case score >= 85:
		return LabelExcellent
	case score >= 70:
		return LabelGood
	case score >= 55:
		return LabelNeedsWork
	default:
		return LabelPoor
	}
}
