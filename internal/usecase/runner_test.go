package usecase

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prscore/prscore/internal/config"
	"github.com/prscore/prscore/internal/domain"
	"github.com/prscore/prscore/internal/gateway"
)

// mockHost simulates the GitHub gateway without real API calls.
type mockHost struct {
	mock.Mock
}

func (m *mockHost) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*gateway.PullRequestInfo, error) {
	args := m.Called(ctx, owner, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PullRequestInfo), args.Error(1)
}

func (m *mockHost) FetchChangedFiles(ctx context.Context, owner, repo string, number int) (*domain.ChangeSet, error) {
	args := m.Called(ctx, owner, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeSet), args.Error(1)
}

func (m *mockHost) UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error {
	args := m.Called(ctx, owner, repo, number, marker, body)
	return args.Error(0)
}

func (m *mockHost) ApplyLabel(ctx context.Context, owner, repo string, number int, label string) error {
	args := m.Called(ctx, owner, repo, number, label)
	return args.Error(0)
}

// mockSink simulates the spreadsheet sink.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Append(ctx context.Context, row []interface{}) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func writeQualityConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quality.yml")
	require.NoError(t, os.WriteFile(path, []byte("tests:\n  enabled: true\n"), 0o644))
	return path
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunner_Run(t *testing.T) {
	info := &gateway.PullRequestInfo{Title: "Add feature", Author: "octocat", BaseBranch: "main"}
	cs := domain.NewChangeSet([]domain.ChangedFile{{Path: "src/app.py", Additions: 10}})

	testCases := []struct {
		name       string
		commentErr error
		labelErr   error
		sinkErr    error
		wantErrs   []string
	}{
		{
			name: "happy path - posts comment, label, and sheet row",
		},
		{
			name:       "comment failure is recorded, not fatal",
			commentErr: errors.New("403 forbidden"),
			wantErrs:   []string{"comment not posted"},
		},
		{
			name:     "label and sink failures are both recorded",
			labelErr: errors.New("label api down"),
			sinkErr:  errors.New("sheets api down"),
			wantErrs: []string{"label not applied", "sheet row not appended"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host := new(mockHost)
			host.On("FetchPullRequest", mock.Anything, "org", "repo", 7).Return(info, nil)
			host.On("FetchChangedFiles", mock.Anything, "org", "repo", 7).Return(cs, nil)
			host.On("UpsertComment", mock.Anything, "org", "repo", 7, mock.Anything, mock.Anything).Return(tc.commentErr)
			host.On("ApplyLabel", mock.Anything, "org", "repo", 7, mock.Anything).Return(tc.labelErr)
			sink := new(mockSink)
			sink.On("Append", mock.Anything, mock.Anything).Return(tc.sinkErr)

			runner := NewRunner(host, sink, testLogger())
			runner.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }

			report, err := runner.Run(context.Background(), Options{
				Owner: "org", Repo: "repo", Number: 7,
				ConfigPath: writeQualityConfig(t),
			})
			require.NoError(t, err, "delivery failures must not abort the run")
			require.NotNil(t, report)
			assert.Equal(t, []string{"src/app.py"}, report.FilesAnalyzed)
			for _, want := range tc.wantErrs {
				found := false
				for _, got := range report.Errors {
					if len(got) >= len(want) && got[:len(want)] == want {
						found = true
					}
				}
				assert.True(t, found, "expected error note %q in %v", want, report.Errors)
			}

			host.AssertExpectations(t)
			sink.AssertExpectations(t)
		})
	}
}

func TestRunner_RunMissingConfigSkips(t *testing.T) {
	host := new(mockHost)
	runner := NewRunner(host, nil, testLogger())

	_, err := runner.Run(context.Background(), Options{
		Owner: "org", Repo: "repo", Number: 7,
		ConfigPath: filepath.Join(t.TempDir(), "quality.yml"),
	})
	assert.ErrorIs(t, err, config.ErrConfigMissing)
	host.AssertNotCalled(t, "FetchPullRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_RunFetchFailureAborts(t *testing.T) {
	host := new(mockHost)
	host.On("FetchPullRequest", mock.Anything, "org", "repo", 7).Return(nil, errors.New("api down")).Maybe()
	host.On("FetchChangedFiles", mock.Anything, "org", "repo", 7).Return(nil, errors.New("api down")).Maybe()

	runner := NewRunner(host, nil, testLogger())
	_, err := runner.Run(context.Background(), Options{
		Owner: "org", Repo: "repo", Number: 7,
		ConfigPath: writeQualityConfig(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch pull request")
}

func TestRunner_RunWithoutSink(t *testing.T) {
	host := new(mockHost)
	host.On("FetchPullRequest", mock.Anything, "org", "repo", 7).Return(&gateway.PullRequestInfo{}, nil)
	host.On("FetchChangedFiles", mock.Anything, "org", "repo", 7).Return(domain.NewChangeSetFromPaths([]string{"a.py"}), nil)
	host.On("UpsertComment", mock.Anything, "org", "repo", 7, mock.Anything, mock.Anything).Return(nil)
	host.On("ApplyLabel", mock.Anything, "org", "repo", 7, mock.Anything).Return(nil)

	runner := NewRunner(host, nil, testLogger())
	report, err := runner.Run(context.Background(), Options{
		Owner: "org", Repo: "repo", Number: 7,
		ConfigPath: writeQualityConfig(t),
	})
	require.NoError(t, err)
	assert.NotNil(t, report)
}

func TestBuildInput(t *testing.T) {
	dir := t.TempDir()
	ruffPath := filepath.Join(dir, "ruff.json")
	require.NoError(t, os.WriteFile(ruffPath, []byte(
		`[{"code": "C901", "filename": "src/app.py", "message": "too complex", "location": {"row": 5}}]`), 0o644))
	jscpdPath := filepath.Join(dir, "jscpd.json")
	require.NoError(t, os.WriteFile(jscpdPath, []byte(
		`{"statistics": {"total": {"percentage": 4.0, "lines": 100, "duplicatedLines": 4}}}`), 0o644))

	cfg := config.Default()
	cfg.Tests.Enabled = true
	cs := domain.NewChangeSetFromPaths([]string{"src/app.py"})

	in := BuildInput(cfg, cs, LocalResults{Ruff: ruffPath, JSCPD: jscpdPath}, testLogger())

	require.Len(t, in.Diagnostics, 1)
	assert.Equal(t, domain.CategoryComplexity, in.Diagnostics[0].Category)
	assert.Equal(t, 4.0, in.Duplication.Percentage)
	assert.True(t, in.TestsEnabled)
	assert.Empty(t, in.Failed)
}

func TestBuildInputMalformedLintDegrades(t *testing.T) {
	dir := t.TempDir()
	ruffPath := filepath.Join(dir, "ruff.json")
	require.NoError(t, os.WriteFile(ruffPath, []byte("not json"), 0o644))

	cfg := config.Default()
	cs := domain.NewChangeSetFromPaths([]string{"src/app.py"})
	in := BuildInput(cfg, cs, LocalResults{Ruff: ruffPath}, testLogger())

	assert.Contains(t, in.Failed, domain.CategoryComplexity)
	assert.Contains(t, in.Failed, domain.CategorySmells)
	assert.Empty(t, in.Diagnostics)
}

func TestBuildInputMalformedTestResultsDegrades(t *testing.T) {
	dir := t.TempDir()
	testsPath := filepath.Join(dir, "results.json")
	require.NoError(t, os.WriteFile(testsPath, []byte("broken"), 0o644))

	cfg := config.Default()
	cs := domain.NewChangeSetFromPaths([]string{"src/app.py"})
	in := BuildInput(cfg, cs, LocalResults{Tests: testsPath}, testLogger())

	assert.Contains(t, in.Failed, domain.CategoryTestResults)
}
