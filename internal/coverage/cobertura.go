package coverage

import (
	"encoding/xml"

	"github.com/prscore/prscore/internal/domain"
)

// CoberturaParser parses Cobertura-style XML coverage reports
// (coverage.py, JaCoCo's cobertura export, and friends).
type CoberturaParser struct{}

func (CoberturaParser) Name() string { return "cobertura" }

type coberturaDoc struct {
	XMLName  xml.Name `xml:"coverage"`
	Packages []struct {
		Classes []struct {
			Filename string `xml:"filename,attr"`
			Lines    []struct {
				Number int `xml:"number,attr"`
				Hits   int `xml:"hits,attr"`
			} `xml:"lines>line"`
		} `xml:"classes>class"`
	} `xml:"packages>package"`
}

// Parse walks every class element and keeps the files belonging to the
// change set. Multiple class entries for the same file (nested classes)
// merge into one sample; line numbers de-duplicate, a line counting as
// covered if any entry reports a hit.
func (CoberturaParser) Parse(data []byte, cs *domain.ChangeSet) ([]domain.CoverageSample, error) {
	var doc coberturaDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	hitsByFile := make(map[string]map[int]bool)
	var order []string
	for _, pkg := range doc.Packages {
		for _, cls := range pkg.Classes {
			if cls.Filename == "" || !cs.Contains(cls.Filename) {
				continue
			}
			hits, ok := hitsByFile[cls.Filename]
			if !ok {
				hits = make(map[int]bool)
				hitsByFile[cls.Filename] = hits
				order = append(order, cls.Filename)
			}
			for _, line := range cls.Lines {
				hits[line.Number] = hits[line.Number] || line.Hits > 0
			}
		}
	}
	var samples []domain.CoverageSample
	for _, file := range order {
		if len(hitsByFile[file]) == 0 {
			continue
		}
		samples = append(samples, sample(file, hitsByFile[file]))
	}
	return samples, nil
}
