// Package coverage parses coverage reports in the supported formats and
// attributes covered/executable lines to the files touched by the pull
// request.
package coverage

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/prscore/prscore/internal/domain"
)

// Parser converts one coverage report format into samples restricted to
// the change set.
type Parser interface {
	// Name identifies the format (cobertura, lcov, istanbul).
	Name() string
	// Parse decodes a raw report. It returns an error only for malformed
	// input; an empty sample list means no changed file was measured.
	Parse(data []byte, cs *domain.ChangeSet) ([]domain.CoverageSample, error)
}

// ParserFor selects a parser from the report filename: .xml is Cobertura,
// .info (or any name containing "lcov") is LCOV, .json is Istanbul.
// Returns nil when the filename matches no supported format.
func ParserFor(path string) Parser {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xml"):
		return CoberturaParser{}
	case strings.HasSuffix(lower, ".info"), strings.Contains(lower, "lcov"):
		return LCOVParser{}
	case strings.HasSuffix(lower, ".json"):
		return IstanbulParser{}
	default:
		return nil
	}
}

// ParseFile reads a coverage report and attributes it to the change set.
// A missing file yields no samples; an unrecognized format is an error so
// the coverage category can be degraded with an explanation.
func ParseFile(path string, cs *domain.ChangeSet) ([]domain.CoverageSample, error) {
	if path == "" {
		return nil, nil
	}
	parser := ParserFor(path)
	if parser == nil {
		return nil, fmt.Errorf("coverage: unrecognized report format: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("coverage: read %s: %w", path, err)
	}
	samples, err := parser.Parse(data, cs)
	if err != nil {
		return nil, fmt.Errorf("coverage: parse %s report %s: %w", parser.Name(), path, err)
	}
	return samples, nil
}

// Summary aggregates coverage samples across all changed files.
type Summary struct {
	CoveredLines  int
	TotalLines    int
	Percentage    float64
	MeanPerFile   float64
	MedianPerFile float64
	ByFile        []domain.CoverageSample
}

// Summarize computes the aggregate coverage ratio from file-level sums.
// Summing lines rather than averaging per-file percentages keeps a large
// untested file from being diluted by many small fully-covered ones.
// The result is independent of sample order.
func Summarize(samples []domain.CoverageSample) Summary {
	s := Summary{ByFile: make([]domain.CoverageSample, 0, len(samples))}
	perFile := make([]float64, 0, len(samples))
	for _, sample := range samples {
		if sample.TotalLines == 0 {
			continue
		}
		s.CoveredLines += sample.CoveredLines
		s.TotalLines += sample.TotalLines
		s.ByFile = append(s.ByFile, sample)
		perFile = append(perFile, sample.Percentage)
	}
	sort.Slice(s.ByFile, func(i, j int) bool { return s.ByFile[i].File < s.ByFile[j].File })
	if s.TotalLines > 0 {
		s.Percentage = round1(float64(s.CoveredLines) / float64(s.TotalLines) * 100)
	}
	if len(perFile) > 0 {
		if mean, err := stats.Mean(perFile); err == nil {
			s.MeanPerFile = round1(mean)
		}
		if median, err := stats.Median(perFile); err == nil {
			s.MedianPerFile = round1(median)
		}
	}
	return s
}

// sample builds a CoverageSample from a de-duplicated line-hit set.
func sample(file string, hits map[int]bool) domain.CoverageSample {
	covered := 0
	for _, hit := range hits {
		if hit {
			covered++
		}
	}
	out := domain.CoverageSample{
		File:         file,
		CoveredLines: covered,
		TotalLines:   len(hits),
	}
	if out.TotalLines > 0 {
		out.Percentage = round1(float64(covered) / float64(out.TotalLines) * 100)
	}
	return out
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
