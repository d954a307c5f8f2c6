package lint

import (
	"strings"

	"github.com/prscore/prscore/internal/domain"
)

// eslintComplexityRules are substrings of ESLint rule IDs classified as
// complexity findings.
var eslintComplexityRules = []string{
	"complexity",
	"max-depth",
	"max-nested-callbacks",
	"max-lines-per-function",
}

// ESLintSource normalizes ESLint (JavaScript/TypeScript) JSON output.
type ESLintSource struct{}

func (ESLintSource) Name() string { return "eslint" }

type eslintFileResult struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Line     int    `json:"line"`
		Message  string `json:"message"`
		Severity int    `json:"severity"`
	} `json:"messages"`
}

// Parse converts ESLint's per-file message lists. ESLint severity 2 (error)
// maps to high, 1 (warn) to medium.
func (ESLintSource) Parse(data []byte, cs *domain.ChangeSet) ([]domain.Diagnostic, error) {
	var results []eslintFileResult
	if err := decodeJSON(data, &results); err != nil {
		return nil, err
	}
	var out []domain.Diagnostic
	for _, fr := range results {
		if !cs.Contains(fr.FilePath) {
			continue
		}
		for _, msg := range fr.Messages {
			d := domain.Diagnostic{
				File:     fr.FilePath,
				Line:     msg.Line,
				Rule:     msg.RuleID,
				Message:  msg.Message,
				Category: domain.CategorySmells,
				Severity: domain.SeverityMedium,
			}
			if msg.Severity >= 2 {
				d.Severity = domain.SeverityHigh
			}
			for _, rule := range eslintComplexityRules {
				if strings.Contains(msg.RuleID, rule) {
					d.Category = domain.CategoryComplexity
					break
				}
			}
			out = append(out, d)
		}
	}
	return out, nil
}
