package lint

import "github.com/prscore/prscore/internal/domain"

// detektComplexityRules are the Detekt rule names classified as complexity
// findings.
var detektComplexityRules = map[string]bool{
	"ComplexMethod":           true,
	"LongMethod":              true,
	"LargeClass":              true,
	"NestedBlockDepth":        true,
	"CyclomaticComplexMethod": true,
}

// DetektSource normalizes Detekt (Kotlin/Java) JSON output.
type DetektSource struct{}

func (DetektSource) Name() string { return "detekt" }

type detektReport struct {
	Findings map[string][]struct {
		Rule     string `json:"rule"`
		Message  string `json:"message"`
		Location struct {
			Path string `json:"path"`
			Line int    `json:"line"`
		} `json:"location"`
	} `json:"findings"`
}

// Parse converts Detekt's findings grouped by rule-set. Complexity rules
// map to high severity, everything else to medium.
func (DetektSource) Parse(data []byte, cs *domain.ChangeSet) ([]domain.Diagnostic, error) {
	var report detektReport
	if err := decodeJSON(data, &report); err != nil {
		return nil, err
	}
	var out []domain.Diagnostic
	for _, findings := range report.Findings {
		for _, f := range findings {
			if !cs.Contains(f.Location.Path) {
				continue
			}
			d := domain.Diagnostic{
				File:     f.Location.Path,
				Line:     f.Location.Line,
				Rule:     f.Rule,
				Message:  f.Message,
				Category: domain.CategorySmells,
				Severity: domain.SeverityMedium,
			}
			if detektComplexityRules[f.Rule] {
				d.Category = domain.CategoryComplexity
				d.Severity = domain.SeverityHigh
			}
			out = append(out, d)
		}
	}
	return out, nil
}
