package testrun

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prscore/prscore/internal/config"
)

func TestParseOutputPytest(t *testing.T) {
	stdout := `
collected 12 items

tests/test_app.py ..........FF

FAILED tests/test_app.py::test_save - AssertionError
FAILED tests/test_app.py::test_load - AssertionError
=========== 2 failed, 9 passed, 1 skipped in 1.24s ===========
`
	out := ParseOutput(stdout, "")

	assert.Equal(t, 9, out.Passed)
	assert.Equal(t, 2, out.Failed)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 12, out.Run)
	require.Len(t, out.Failures, 2)
	assert.Equal(t, "tests/test_app.py::test_save", out.Failures[0])
}

func TestParseOutputJest(t *testing.T) {
	stderr := `
PASS src/app.test.js
FAIL src/util.test.js
  ✕ formats dates (4 ms)

Tests:       7 passed, 8 total
`
	out := ParseOutput("", stderr)

	assert.Equal(t, 7, out.Passed)
	assert.NotEmpty(t, out.Failures)
}

func TestParseOutputUnrecognized(t *testing.T) {
	out := ParseOutput("nothing useful here", "")
	assert.Zero(t, out.Run)
	assert.Empty(t, out.Failures)
}

func TestParseOutputFailureListCapped(t *testing.T) {
	stdout := `
FAILED t::a
FAILED t::b
FAILED t::c
FAILED t::d
FAILED t::e
FAILED t::f
FAILED t::g
7 failed in 2s
`
	out := ParseOutput(stdout, "")
	assert.Equal(t, 7, out.Failed)
	assert.Len(t, out.Failures, 5)
}

func TestFindTests(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string) {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	mustWrite("tests/test_app.py")
	mustWrite("tests/helper.py") // not a test file
	mustWrite("src/util_test.py")
	mustWrite("web/app.spec.ts")
	mustWrite("e2e/checkout.test.js")
	mustWrite("tests/integration/test_flow.py")
	mustWrite("android/MainTest.kt")
	mustWrite("node_modules/pkg/index.test.js") // skipped dir

	presence, err := FindTests(dir)
	require.NoError(t, err)

	assert.True(t, presence.UnitFound)
	assert.Equal(t, 4, presence.UnitCount)
	assert.Equal(t, []string{
		"android/MainTest.kt",
		"src/util_test.py",
		"tests/test_app.py",
		"web/app.spec.ts",
	}, presence.UnitFiles)

	assert.True(t, presence.E2EFound)
	assert.Equal(t, 2, presence.E2ECount)
}

func TestFindTestsEmptyTree(t *testing.T) {
	presence, err := FindTests(t.TempDir())
	require.NoError(t, err)
	assert.False(t, presence.UnitFound)
	assert.False(t, presence.E2EFound)
}

func TestLoadResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"tests_run": 10, "tests_passed": 9, "tests_failed": 1,
		"unit_tests_found": true, "unit_tests_count": 4,
		"coverage_percentage": 81.5
	}`), 0o644))

	res, err := LoadResult(path)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Run)
	assert.Equal(t, 9, res.Passed)
	assert.True(t, res.UnitFound)
	assert.Equal(t, 81.5, res.CoveragePercentage)
}

func TestLoadResultMissingIsZero(t *testing.T) {
	res, err := LoadResult(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Zero(t, res.Run)

	res, err = LoadResult("")
	require.NoError(t, err)
	assert.Zero(t, res.Run)
}

func TestLoadResultMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadResult(path)
	assert.Error(t, err)
}

func TestCommandList(t *testing.T) {
	cfg := config.Tests{
		Enabled:  true,
		Commands: map[string]string{"python": "pytest", "javascript": "npx jest"},
	}
	assert.Equal(t, []string{"npx jest", "pytest"}, commandList(cfg), "per-language commands run in stable language order")

	cfg.Command = "make test"
	assert.Equal(t, []string{"make test"}, commandList(cfg), "a single command wins over the per-language map")
}
