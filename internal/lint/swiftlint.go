package lint

import (
	"strings"

	"github.com/prscore/prscore/internal/domain"
)

// swiftlintComplexityRules are the SwiftLint rule IDs classified as
// complexity findings.
var swiftlintComplexityRules = map[string]bool{
	"cyclomatic_complexity": true,
	"function_body_length":  true,
	"type_body_length":      true,
	"file_length":           true,
}

// SwiftLintSource normalizes SwiftLint JSON output.
type SwiftLintSource struct{}

func (SwiftLintSource) Name() string { return "swiftlint" }

type swiftlintIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	RuleID   string `json:"rule_id"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// Parse converts SwiftLint's issue list. SwiftLint "Error" maps to high,
// "Warning" to medium.
func (SwiftLintSource) Parse(data []byte, cs *domain.ChangeSet) ([]domain.Diagnostic, error) {
	var issues []swiftlintIssue
	if err := decodeJSON(data, &issues); err != nil {
		return nil, err
	}
	var out []domain.Diagnostic
	for _, iss := range issues {
		if !cs.Contains(iss.File) {
			continue
		}
		d := domain.Diagnostic{
			File:     iss.File,
			Line:     iss.Line,
			Rule:     iss.RuleID,
			Message:  iss.Reason,
			Category: domain.CategorySmells,
			Severity: domain.SeverityMedium,
		}
		if strings.EqualFold(iss.Severity, "error") {
			d.Severity = domain.SeverityHigh
		}
		if swiftlintComplexityRules[iss.RuleID] {
			d.Category = domain.CategoryComplexity
		}
		out = append(out, d)
	}
	return out, nil
}
