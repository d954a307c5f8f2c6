// Package lint normalizes per-tool linter output into uniform diagnostics
// restricted to the files touched by the pull request.
package lint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prscore/prscore/internal/domain"
)

// Source converts one linter's native JSON output into normalized
// diagnostics. Findings on files outside the change set are discarded.
type Source interface {
	// Name identifies the tool (ruff, eslint, swiftlint, detekt).
	Name() string
	// Parse decodes the tool's raw JSON output. It returns an error only
	// for malformed input; an empty result list is a clean run.
	Parse(data []byte, cs *domain.ChangeSet) ([]domain.Diagnostic, error)
}

// Sources returns all supported diagnostic sources.
func Sources() []Source {
	return []Source{RuffSource{}, ESLintSource{}, SwiftLintSource{}, DetektSource{}}
}

// ParseFile reads and parses one tool's result file. A missing or empty
// path yields no diagnostics, matching a linter that produced no output.
func ParseFile(src Source, path string, cs *domain.ChangeSet) ([]domain.Diagnostic, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lint: read %s results %s: %w", src.Name(), path, err)
	}
	diags, err := src.Parse(data, cs)
	if err != nil {
		return nil, fmt.Errorf("lint: parse %s results %s: %w", src.Name(), path, err)
	}
	return diags, nil
}

// decodeJSON unmarshals into v, rejecting empty input as malformed.
func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty input")
	}
	return json.Unmarshal(data, v)
}
