package lint

import "github.com/prscore/prscore/internal/domain"

// ruffComplexityRules are the Ruff rule codes classified as complexity
// findings; everything else is a code smell.
var ruffComplexityRules = map[string]bool{
	"C901":    true,
	"PLR0915": true,
	"PLR0912": true,
	"PLR0911": true,
}

// RuffSource normalizes Ruff (Python) JSON output.
type RuffSource struct{}

func (RuffSource) Name() string { return "ruff" }

type ruffIssue struct {
	Code     string `json:"code"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
}

// Parse converts Ruff's flat issue list. Ruff reports no severity of its
// own, so complexity findings map to high and smells to medium.
func (RuffSource) Parse(data []byte, cs *domain.ChangeSet) ([]domain.Diagnostic, error) {
	var issues []ruffIssue
	if err := decodeJSON(data, &issues); err != nil {
		return nil, err
	}
	var out []domain.Diagnostic
	for _, iss := range issues {
		if !cs.Contains(iss.Filename) {
			continue
		}
		d := domain.Diagnostic{
			File:     iss.Filename,
			Line:     iss.Location.Row,
			Rule:     iss.Code,
			Message:  iss.Message,
			Category: domain.CategorySmells,
			Severity: domain.SeverityMedium,
		}
		if ruffComplexityRules[iss.Code] {
			d.Category = domain.CategoryComplexity
			d.Severity = domain.SeverityHigh
		}
		out = append(out, d)
	}
	return out, nil
}
