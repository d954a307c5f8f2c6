package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/domain"
	"github.com/prscore/prscore/internal/score"
)

func passingReport() *domain.QualityReport {
	cfg := config.Default()
	return score.Compute(score.Input{
		ChangeSet: domain.NewChangeSetFromPaths([]string{"src/app.py"}),
		CoverageSamples: []domain.CoverageSample{
			{File: "src/app.py", CoveredLines: 90, TotalLines: 100, Percentage: 90},
		},
		Outcome:      &domain.TestOutcome{Run: 8, Passed: 8},
		Presence:     domain.TestPresence{UnitFound: true, UnitCount: 4},
		TestsEnabled: true,
		Weights:      cfg.Weights,
		Threshold:    cfg.Threshold,
		MinUnitTests: cfg.MinUnitTests,
	})
}

var renderTime = time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC)

func TestMarkdownPassingReport(t *testing.T) {
	body := Markdown(passingReport(), renderTime)

	assert.True(t, strings.HasPrefix(body, CommentMarker), "marker must lead the comment for upsert matching")
	assert.Contains(t, body, "**100/100**")
	assert.Contains(t, body, "✅ Pass")
	assert.Contains(t, body, "### 📊 Code Quality (40/40)")
	assert.Contains(t, body, "### 🧪 Test Health (30/30)")
	assert.Contains(t, body, "### ✅ Test Presence (30/30)")
	assert.Contains(t, body, "⏭️ Not required")
	assert.Contains(t, body, "meets quality standards")
	assert.Contains(t, body, "2026-08-25 12:30 UTC")
	assert.NotContains(t, body, "⚠️ Notes")
}

func TestMarkdownFailingReport(t *testing.T) {
	cfg := config.Default()
	r := score.Compute(score.Input{
		ChangeSet: domain.NewChangeSetFromPaths([]string{"src/app.py"}),
		Diagnostics: []domain.Diagnostic{
			{File: "src/app.py", Line: 12, Rule: "C901", Message: "function is too complex", Category: domain.CategoryComplexity, Severity: domain.SeverityHigh},
			{File: "src/app.py", Line: 30, Rule: "E501", Message: "line too long", Category: domain.CategorySmells, Severity: domain.SeverityMedium},
		},
		Duplication:  domain.DuplicationStats{Percentage: 12, Clones: []domain.DuplicatedPair{{FirstFile: "src/a.py", SecondFile: "src/b.py", Lines: 20}}},
		Outcome:      &domain.TestOutcome{Run: 5, Passed: 3, Failed: 2, Failures: []string{"test_app.py::test_save"}},
		TestsEnabled: true,
		Weights:      cfg.Weights,
		Threshold:    cfg.Threshold,
		MinUnitTests: cfg.MinUnitTests,
	})
	body := Markdown(r, renderTime)

	assert.Contains(t, body, "❌ Below threshold (70)")
	assert.Contains(t, body, "🔴 Complexity Issues (1 found, -4 points)")
	assert.Contains(t, body, "🟡 Code Smells (1 found, -2 points)")
	assert.Contains(t, body, "`C901`")
	assert.Contains(t, body, "📋 Duplication (12.0%, -6 points)")
	assert.Contains(t, body, "#### ❌ Failed Tests")
	assert.Contains(t, body, "`test_app.py::test_save`")
	assert.Contains(t, body, "below the quality threshold")
	assert.Contains(t, body, "⚠️ Notes")
	assert.Contains(t, body, "no coverage data")
}

func TestMarkdownIssueTableCapped(t *testing.T) {
	cfg := config.Default()
	var diags []domain.Diagnostic
	for i := 1; i <= 8; i++ {
		diags = append(diags, domain.Diagnostic{
			File: "src/app.py", Line: i, Rule: "E501", Message: "line too long",
			Category: domain.CategorySmells, Severity: domain.SeverityLow,
		})
	}
	r := score.Compute(score.Input{
		ChangeSet:    domain.NewChangeSetFromPaths([]string{"src/app.py"}),
		Diagnostics:  diags,
		TestsEnabled: true,
		Weights:      cfg.Weights,
		Threshold:    cfg.Threshold,
		MinUnitTests: cfg.MinUnitTests,
	})
	body := Markdown(r, renderTime)

	assert.Contains(t, body, "*3 more issues*")
}

func TestMarkdownCoverageByFileDetails(t *testing.T) {
	r := passingReport()
	body := Markdown(r, renderTime)

	assert.Contains(t, body, "<summary>📁 Coverage by File</summary>")
	assert.Contains(t, body, "| `src/app.py` | 100 | 90 | 90.0% |")
}

func TestMarkdownE2ERequiredRow(t *testing.T) {
	cfg := config.Default()
	r := score.Compute(score.Input{
		ChangeSet:    domain.NewChangeSetFromPaths([]string{"src/app.py"}),
		Presence:     domain.TestPresence{UnitFound: true, UnitCount: 4, E2EFound: true, E2ECount: 2},
		E2ERequired:  true,
		TestsEnabled: true,
		Weights:      cfg.Weights,
		Threshold:    cfg.Threshold,
		MinUnitTests: cfg.MinUnitTests,
	})
	body := Markdown(r, renderTime)

	assert.Contains(t, body, "| E2E Tests | ✅ Found (2 tests) | 10/10 |")
	assert.NotContains(t, body, "Not required")
}

func TestCodePathTruncatesFromLeft(t *testing.T) {
	long := "very/deeply/nested/directory/structure/with/a/file.py"
	got := codePath(long)
	require.True(t, strings.HasPrefix(got, "`..."))
	assert.True(t, strings.HasSuffix(got, "with/a/file.py`"))
	assert.LessOrEqual(t, len(got), 42+2)
}
