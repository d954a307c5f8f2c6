// Package render produces the PR comment markdown from a quality report.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/prscore/prscore/internal/domain"
)

// CommentMarker is embedded invisibly in every generated comment so the
// gateway can find and update a previous run's comment instead of posting
// a new one.
const CommentMarker = "<!-- prscore-report -->"

// Markdown renders the full PR comment for a report. The output always
// includes the overall verdict, per-category tables, and any degradation
// notes, so a partially failed pipeline still produces an explainable
// comment.
func Markdown(r *domain.QualityReport, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(CommentMarker + "\n")
	sb.WriteString("## 🔍 Code Quality Report\n\n")

	verdict := "✅ Pass"
	if !r.Passed {
		verdict = fmt.Sprintf("❌ Below threshold (%d)", r.Threshold)
	}
	sb.WriteString("| Category | Score | Status |\n")
	sb.WriteString("|----------|-------|--------|\n")
	fmt.Fprintf(&sb, "| **Overall** | **%d/100** | %s |\n\n", r.FinalScore, verdict)
	sb.WriteString("---\n\n")

	writeCodeQuality(&sb, r.Breakdown.CodeQuality)
	writeTestHealth(&sb, r.Breakdown.TestHealth)
	writeTestPresence(&sb, r.Breakdown.TestPresence)
	writeTotals(&sb, r)
	writeFooter(&sb, r, now)
	return sb.String()
}

func writeCodeQuality(sb *strings.Builder, cq domain.CodeQualityBreakdown) {
	fmt.Fprintf(sb, "### 📊 Code Quality (%s/%s)\n\n", trimFloat(cq.Total), trimFloat(cq.Max))
	sb.WriteString("| Metric | Score | Status |\n")
	sb.WriteString("|--------|-------|--------|\n")
	fmt.Fprintf(sb, "| Complexity | %s/%s | %s |\n",
		trimFloat(cq.Complexity.Earned), trimFloat(cq.Complexity.Max), statusEmoji(cq.Complexity.CategoryScore))
	fmt.Fprintf(sb, "| Code Smells | %s/%s | %s |\n",
		trimFloat(cq.Smells.Earned), trimFloat(cq.Smells.Max), statusEmoji(cq.Smells.CategoryScore))
	fmt.Fprintf(sb, "| Duplication | %s/%s | %s |\n\n",
		trimFloat(cq.Duplication.Earned), trimFloat(cq.Duplication.Max), statusEmoji(cq.Duplication.CategoryScore))

	writeIssueTable(sb, "🔴 Complexity Issues", cq.Complexity)
	writeIssueTable(sb, "🟡 Code Smells", cq.Smells)

	if cq.Duplication.Percentage > 0 {
		fmt.Fprintf(sb, "#### 📋 Duplication (%.1f%%, -%s points)\n\n",
			cq.Duplication.Percentage, trimFloat(cq.Duplication.Penalty))
		if len(cq.Duplication.Clones) > 0 {
			sb.WriteString("| First File | Second File | Lines |\n")
			sb.WriteString("|------------|-------------|-------|\n")
			for i, clone := range cq.Duplication.Clones {
				if i >= 3 {
					break
				}
				fmt.Fprintf(sb, "| %s | %s | %d |\n",
					codePath(clone.FirstFile), codePath(clone.SecondFile), clone.Lines)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("---\n\n")
}

func writeIssueTable(sb *strings.Builder, title string, ds domain.DiagnosticScore) {
	if ds.Count == 0 {
		return
	}
	fmt.Fprintf(sb, "#### %s (%d found, -%s points)\n\n", title, ds.Count, trimFloat(ds.Penalty))
	sb.WriteString("| File | Line | Issue | Rule |\n")
	sb.WriteString("|------|------|-------|------|\n")
	for i, iss := range ds.Issues {
		if i >= 5 {
			fmt.Fprintf(sb, "| ... | ... | *%d more issues* | ... |\n", ds.Count-5)
			break
		}
		fmt.Fprintf(sb, "| %s | %d | %s | `%s` |\n",
			codePath(iss.File), iss.Line, truncate(iss.Message, 60), iss.Rule)
	}
	sb.WriteString("\n")
}

func writeTestHealth(sb *strings.Builder, th domain.TestHealthBreakdown) {
	fmt.Fprintf(sb, "### 🧪 Test Health (%s/%s)\n\n", trimFloat(th.Total), trimFloat(th.Max))
	sb.WriteString("| Metric | Value | Score | Status |\n")
	sb.WriteString("|--------|-------|-------|--------|\n")
	fmt.Fprintf(sb, "| Coverage (changed files) | %.1f%% | %s/%s | %s |\n",
		th.Coverage.Percentage, trimFloat(th.Coverage.Earned), trimFloat(th.Coverage.Max),
		statusEmoji(th.Coverage.CategoryScore))
	fmt.Fprintf(sb, "| Tests Passing | %d/%d | %s/%s | %s |\n\n",
		th.Results.Outcome.Passed, th.Results.Outcome.Run,
		trimFloat(th.Results.Earned), trimFloat(th.Results.Max), statusEmoji(th.Results.CategoryScore))

	if len(th.Coverage.ByFile) > 0 {
		sb.WriteString("<details>\n<summary>📁 Coverage by File</summary>\n\n")
		sb.WriteString("| File | Lines | Covered | Coverage |\n")
		sb.WriteString("|------|-------|---------|----------|\n")
		for i, cf := range th.Coverage.ByFile {
			if i >= 10 {
				fmt.Fprintf(sb, "| ... | ... | ... | *%d more files* |\n", len(th.Coverage.ByFile)-10)
				break
			}
			fmt.Fprintf(sb, "| %s | %d | %d | %.1f%% |\n",
				codePath(cf.File), cf.TotalLines, cf.CoveredLines, cf.Percentage)
		}
		sb.WriteString("\n</details>\n\n")
	}

	if len(th.Results.Outcome.Failures) > 0 {
		sb.WriteString("#### ❌ Failed Tests\n\n")
		for _, fail := range th.Results.Outcome.Failures {
			fmt.Fprintf(sb, "- `%s`\n", fail)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
}

func writeTestPresence(sb *strings.Builder, tp domain.TestPresenceBreakdown) {
	fmt.Fprintf(sb, "### ✅ Test Presence (%s/%s)\n\n", trimFloat(tp.Total), trimFloat(tp.Max))
	sb.WriteString("| Type | Status | Score |\n")
	sb.WriteString("|------|--------|-------|\n")
	fmt.Fprintf(sb, "| Unit Tests | %s | %s/%s |\n",
		presenceStatus(tp.Unit.Found, tp.Unit.Count), trimFloat(tp.Unit.Earned), trimFloat(tp.Unit.Max))
	if tp.E2E.Required {
		fmt.Fprintf(sb, "| E2E Tests | %s | %s/%s |\n",
			presenceStatus(tp.E2E.Found, tp.E2E.Count), trimFloat(tp.E2E.Earned), trimFloat(tp.E2E.Max))
	} else {
		sb.WriteString("| E2E Tests | ⏭️ Not required | N/A |\n")
	}
	sb.WriteString("\n---\n\n")
}

func writeTotals(sb *strings.Builder, r *domain.QualityReport) {
	sb.WriteString("### 📊 Score Breakdown\n\n")
	sb.WriteString("| Category | Earned | Max |\n")
	sb.WriteString("|----------|--------|-----|\n")
	fmt.Fprintf(sb, "| Code Quality | %s | %s |\n",
		trimFloat(r.Breakdown.CodeQuality.Total), trimFloat(r.Breakdown.CodeQuality.Max))
	fmt.Fprintf(sb, "| Test Health | %s | %s |\n",
		trimFloat(r.Breakdown.TestHealth.Total), trimFloat(r.Breakdown.TestHealth.Max))
	fmt.Fprintf(sb, "| Test Presence | %s | %s |\n",
		trimFloat(r.Breakdown.TestPresence.Total), trimFloat(r.Breakdown.TestPresence.Max))
	fmt.Fprintf(sb, "| **Total** | **%d** | **100** |\n\n", r.FinalScore)
	sb.WriteString("---\n\n")
}

func writeFooter(sb *strings.Builder, r *domain.QualityReport, now time.Time) {
	if r.Passed {
		sb.WriteString("> ✅ **This PR meets quality standards.**\n")
		if suggestions := buildSuggestions(r); suggestions != "" {
			fmt.Fprintf(sb, "> 💡 Suggestions: %s\n", suggestions)
		}
	} else {
		fmt.Fprintf(sb, "> ❌ **This PR is below the quality threshold (%d).**\n", r.Threshold)
		sb.WriteString("> Please address the issues above before merging.\n")
	}

	if len(r.Errors) > 0 {
		sb.WriteString("\n<details>\n<summary>⚠️ Notes</summary>\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(sb, "- %s\n", e)
		}
		sb.WriteString("\n</details>\n")
	}

	fmt.Fprintf(sb, "\n---\n<sub>Generated by prscore • %s</sub>\n",
		now.UTC().Format("2006-01-02 15:04 UTC"))
}

func buildSuggestions(r *domain.QualityReport) string {
	var parts []string
	cov := r.Breakdown.TestHealth.Coverage
	if cov.Percentage < 80 {
		parts = append(parts, fmt.Sprintf("improve coverage (currently %.1f%%)", cov.Percentage))
	}
	if n := r.Breakdown.CodeQuality.Complexity.Count; n > 0 {
		parts = append(parts, fmt.Sprintf("reduce complexity (%d issues)", n))
	}
	if n := r.Breakdown.CodeQuality.Smells.Count; n > 0 {
		parts = append(parts, fmt.Sprintf("fix code smells (%d issues)", n))
	}
	return strings.Join(parts, "; ")
}

// statusEmoji colors a category by earned percentage: green >=80%,
// yellow >=60%, red below, white for a zero-max category.
func statusEmoji(cs domain.CategoryScore) string {
	if cs.Max == 0 {
		return "⚪"
	}
	pct := cs.Earned / cs.Max * 100
	switch {
	case pct >= 80:
		return "🟢"
	case pct >= 60:
		return "🟡"
	default:
		return "🔴"
	}
}

func presenceStatus(found bool, count int) string {
	if !found {
		return "❌ Not found"
	}
	return fmt.Sprintf("✅ Found (%d tests)", count)
}

// codePath wraps a path in backticks, truncating long paths from the left.
func codePath(p string) string {
	const maxLen = 40
	if len(p) > maxLen {
		p = "..." + p[len(p)-(maxLen-3):]
	}
	return "`" + p + "`"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// trimFloat formats a score without a trailing ".0" for whole values.
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}
