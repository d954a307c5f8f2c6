package coverage

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/prscore/prscore/internal/domain"
)

// LCOVParser parses LCOV tracefiles (lcov.info).
type LCOVParser struct{}

func (LCOVParser) Name() string { return "lcov" }

// Parse walks SF/DA/end_of_record blocks and keeps files belonging to the
// change set. DA lines for the same line number de-duplicate, covered if
// any execution count is positive.
func (LCOVParser) Parse(data []byte, cs *domain.ChangeSet) ([]domain.CoverageSample, error) {
	var samples []domain.CoverageSample
	var current string
	var hits map[int]bool

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			current = strings.TrimSpace(line[3:])
			hits = make(map[int]bool)
		case strings.HasPrefix(line, "DA:"):
			if hits == nil {
				continue
			}
			parts := strings.SplitN(line[3:], ",", 3)
			if len(parts) < 2 {
				continue
			}
			lineNo, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			count, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			hits[lineNo] = hits[lineNo] || count > 0
		case line == "end_of_record":
			if current != "" && len(hits) > 0 && cs.Contains(current) {
				samples = append(samples, sample(current, hits))
			}
			current = ""
			hits = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lcov: %w", err)
	}
	return samples, nil
}
