package lint

import (
	"fmt"
	"os"

	"github.com/prscore/prscore/internal/domain"
)

type jscpdReport struct {
	Statistics struct {
		Total struct {
			Percentage      float64 `json:"percentage"`
			Lines           int     `json:"lines"`
			DuplicatedLines int     `json:"duplicatedLines"`
		} `json:"total"`
	} `json:"statistics"`
	Duplicates []struct {
		Lines     int `json:"lines"`
		Tokens    int `json:"tokens"`
		FirstFile struct {
			Name string `json:"name"`
		} `json:"firstFile"`
		SecondFile struct {
			Name string `json:"name"`
		} `json:"secondFile"`
	} `json:"duplicates"`
}

// ParseJSCPD normalizes jscpd duplication output. Duplication is scored
// from the overall percentage, so no change-set restriction applies; jscpd
// is already invoked on the changed files only.
func ParseJSCPD(data []byte) (domain.DuplicationStats, error) {
	var report jscpdReport
	if err := decodeJSON(data, &report); err != nil {
		return domain.DuplicationStats{}, fmt.Errorf("lint: parse jscpd results: %w", err)
	}
	stats := domain.DuplicationStats{
		Percentage:      report.Statistics.Total.Percentage,
		TotalLines:      report.Statistics.Total.Lines,
		DuplicatedLines: report.Statistics.Total.DuplicatedLines,
	}
	for _, dup := range report.Duplicates {
		stats.Clones = append(stats.Clones, domain.DuplicatedPair{
			FirstFile:  dup.FirstFile.Name,
			SecondFile: dup.SecondFile.Name,
			Lines:      dup.Lines,
			Tokens:     dup.Tokens,
		})
	}
	return stats, nil
}

// ParseJSCPDFile reads and parses a jscpd result file. A missing path
// yields zero duplication.
func ParseJSCPDFile(path string) (domain.DuplicationStats, error) {
	if path == "" {
		return domain.DuplicationStats{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DuplicationStats{}, nil
		}
		return domain.DuplicationStats{}, fmt.Errorf("lint: read jscpd results %s: %w", path, err)
	}
	return ParseJSCPD(data)
}
