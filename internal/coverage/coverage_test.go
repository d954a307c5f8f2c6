package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prscore/prscore/internal/domain"
)

func changeSet(paths ...string) *domain.ChangeSet {
	return domain.NewChangeSetFromPaths(paths)
}

const coberturaReport = `<?xml version="1.0"?>
<coverage>
  <packages>
    <package name="src">
      <classes>
        <class filename="src/app.py">
          <lines>
            <line number="1" hits="3"/>
            <line number="2" hits="0"/>
            <line number="3" hits="1"/>
            <line number="3" hits="0"/>
          </lines>
        </class>
        <class filename="src/app.py">
          <lines>
            <line number="4" hits="1"/>
          </lines>
        </class>
        <class filename="src/skipped.py">
          <lines>
            <line number="1" hits="1"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>`

func TestCoberturaParse(t *testing.T) {
	samples, err := CoberturaParser{}.Parse([]byte(coberturaReport), changeSet("src/app.py"))
	require.NoError(t, err)
	require.Len(t, samples, 1, "file outside the change set must be dropped")

	s := samples[0]
	assert.Equal(t, "src/app.py", s.File)
	// Lines 1-4 with line 3 reported twice: covered if any entry has hits.
	assert.Equal(t, 4, s.TotalLines)
	assert.Equal(t, 3, s.CoveredLines)
	assert.Equal(t, 75.0, s.Percentage)
}

func TestCoberturaParseMalformed(t *testing.T) {
	_, err := CoberturaParser{}.Parse([]byte("<coverage"), changeSet("src/app.py"))
	assert.Error(t, err)
}

const lcovReport = `TN:
SF:src/index.js
DA:1,5
DA:2,0
DA:3,1
DA:3,0
end_of_record
SF:src/skipped.js
DA:1,1
end_of_record
`

func TestLCOVParse(t *testing.T) {
	samples, err := LCOVParser{}.Parse([]byte(lcovReport), changeSet("src/index.js"))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, "src/index.js", s.File)
	assert.Equal(t, 3, s.TotalLines)
	assert.Equal(t, 2, s.CoveredLines)
	assert.Equal(t, 66.7, s.Percentage)
}

const istanbulReport = `{
  "/repo/src/index.js": {
    "s": {"0": 2, "1": 0, "2": 1},
    "statementMap": {
      "0": {"start": {"line": 1}},
      "1": {"start": {"line": 2}},
      "2": {"start": {"line": 2}}
    }
  },
  "/repo/src/skipped.js": {
    "s": {"0": 1},
    "statementMap": {"0": {"start": {"line": 1}}}
  }
}`

func TestIstanbulParse(t *testing.T) {
	samples, err := IstanbulParser{}.Parse([]byte(istanbulReport), changeSet("src/index.js"))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	// Statements on line 2: one covered, one not. Any hit covers the line.
	assert.Equal(t, 2, s.TotalLines)
	assert.Equal(t, 2, s.CoveredLines)
	assert.Equal(t, 100.0, s.Percentage)
}

func TestParserFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"coverage.xml", "cobertura"},
		{"lcov.info", "lcov"},
		{"reports/lcov-report.txt", "lcov"},
		{"coverage-final.json", "istanbul"},
		{"coverage.out", ""},
	}
	for _, tt := range tests {
		p := ParserFor(tt.path)
		if tt.want == "" {
			assert.Nil(t, p, tt.path)
			continue
		}
		require.NotNil(t, p, tt.path)
		assert.Equal(t, tt.want, p.Name())
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coverage.xml")
	require.NoError(t, os.WriteFile(path, []byte(coberturaReport), 0o644))

	samples, err := ParseFile(path, changeSet("src/app.py"))
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	// Missing file is a pipeline stage that never ran, not an error.
	samples, err = ParseFile(filepath.Join(dir, "absent.xml"), changeSet("src/app.py"))
	require.NoError(t, err)
	assert.Empty(t, samples)

	_, err = ParseFile(filepath.Join(dir, "coverage.out"), changeSet("src/app.py"))
	assert.Error(t, err, "unknown format must error so the category can degrade")
}

func TestSummarize(t *testing.T) {
	samples := []domain.CoverageSample{
		{File: "b.py", CoveredLines: 10, TotalLines: 100, Percentage: 10},
		{File: "a.py", CoveredLines: 50, TotalLines: 50, Percentage: 100},
		{File: "empty.py"},
	}
	s := Summarize(samples)

	assert.Equal(t, 60, s.CoveredLines)
	assert.Equal(t, 150, s.TotalLines)
	// Line-weighted, not the per-file mean: 60/150.
	assert.Equal(t, 40.0, s.Percentage)
	assert.Equal(t, 55.0, s.MeanPerFile)
	assert.Equal(t, 55.0, s.MedianPerFile)
	require.Len(t, s.ByFile, 2, "zero-line samples are excluded")
	assert.Equal(t, "a.py", s.ByFile[0].File)
}

func TestSummarizeOrderIndependent(t *testing.T) {
	samples := []domain.CoverageSample{
		{File: "a.py", CoveredLines: 5, TotalLines: 10, Percentage: 50},
		{File: "b.py", CoveredLines: 30, TotalLines: 40, Percentage: 75},
		{File: "c.py", CoveredLines: 0, TotalLines: 20, Percentage: 0},
	}
	forward := Summarize(samples)
	backward := Summarize([]domain.CoverageSample{samples[2], samples[0], samples[1]})

	assert.Equal(t, forward.Percentage, backward.Percentage)
	assert.Equal(t, forward.ByFile, backward.ByFile)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Percentage)
	assert.Zero(t, s.TotalLines)
	assert.Empty(t, s.ByFile)
}
