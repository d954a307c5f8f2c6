package coverage

import (
	"encoding/json"
	"sort"

	"github.com/prscore/prscore/internal/domain"
)

// IstanbulParser parses Istanbul/nyc JSON coverage reports. Statement
// counters stand in for executable lines, matching how the report is
// produced by jest --coverage.
type IstanbulParser struct{}

func (IstanbulParser) Name() string { return "istanbul" }

type istanbulFile struct {
	Statements   map[string]int `json:"s"`
	StatementMap map[string]struct {
		Start struct {
			Line int `json:"line"`
		} `json:"start"`
	} `json:"statementMap"`
}

// Parse keeps files belonging to the change set. When a statementMap is
// present, statements are attributed to start lines and de-duplicated per
// line; otherwise each statement counter is treated as its own line.
func (IstanbulParser) Parse(data []byte, cs *domain.ChangeSet) ([]domain.CoverageSample, error) {
	var files map[string]istanbulFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var samples []domain.CoverageSample
	for _, p := range paths {
		if !cs.Contains(p) {
			continue
		}
		fd := files[p]
		if len(fd.Statements) == 0 {
			continue
		}
		hits := make(map[int]bool)
		if len(fd.StatementMap) > 0 {
			for id, count := range fd.Statements {
				loc, ok := fd.StatementMap[id]
				if !ok {
					continue
				}
				hits[loc.Start.Line] = hits[loc.Start.Line] || count > 0
			}
		} else {
			// No location map: count statements directly.
			i := 0
			ids := make([]string, 0, len(fd.Statements))
			for id := range fd.Statements {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				i++
				hits[i] = fd.Statements[id] > 0
			}
		}
		if len(hits) > 0 {
			samples = append(samples, sample(p, hits))
		}
	}
	return samples, nil
}
