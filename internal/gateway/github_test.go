package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())
	logger := log.New(io.Discard, "", 0)

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}
	return gateway, server
}

func TestGitHubGateway_FetchPullRequest(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expectedTitle  string
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - fetches PR metadata via GraphQL",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "pullRequest")
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{"data":{"repository":{"pullRequest":{
					"title":"Add feature",
					"url":"https://github.com/org/repo/pull/42",
					"author":{"login":"octocat"},
					"baseRefName":"main",
					"headRefName":"feature",
					"additions":120,
					"deletions":30,
					"changedFiles":4
				}}}}`)
			},
			expectedTitle: "Add feature",
		},
		{
			name: "error case - GraphQL error response",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{"errors":[{"message":"Could not resolve to a PullRequest"}]}`)
			},
			expectError:    true,
			expectedErrMsg: "failed to query pull request metadata",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()

			info, err := gateway.FetchPullRequest(context.Background(), "org", "repo", 42)
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTitle, info.Title)
			assert.Equal(t, "octocat", info.Author)
			assert.Equal(t, "main", info.BaseBranch)
			assert.Equal(t, 120, info.Additions)
			assert.Equal(t, 4, info.FileCount)
		})
	}
}

func TestGitHubGateway_FetchChangedFiles(t *testing.T) {
	page := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repos/org/repo/pulls/7/files")
		page++
		w.Header().Set("Content-Type", "application/json")
		if page == 1 {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=2>; rel="next"`, r.Host, r.URL.Path))
			fmt.Fprint(w, `[{"filename":"src/app.py","additions":10,"deletions":2}]`)
			return
		}
		fmt.Fprint(w, `[{"filename":"src/util.py","additions":3,"deletions":0}]`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	cs, err := gateway.FetchChangedFiles(context.Background(), "org", "repo", 7)
	require.NoError(t, err)

	assert.Equal(t, 2, page, "must follow pagination")
	assert.Equal(t, []string{"src/app.py", "src/util.py"}, cs.Paths())
	assert.Equal(t, 13, cs.TotalAdditions())
	assert.Equal(t, 2, cs.TotalDeletions())
}

func TestGitHubGateway_UpsertComment(t *testing.T) {
	testCases := []struct {
		name          string
		existingBody  string
		expectEdit    bool
		expectCreated bool
	}{
		{
			name:         "edits the comment carrying the marker",
			existingBody: "<!-- quality-marker -->\nold report",
			expectEdit:   true,
		},
		{
			name:          "creates a comment when no marker exists",
			existingBody:  "unrelated human comment",
			expectCreated: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var edited, created bool
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch {
				case r.Method == http.MethodGet:
					fmt.Fprintf(w, `[{"id":101,"body":%q}]`, tc.existingBody)
				case r.Method == http.MethodPatch:
					edited = true
					assert.Contains(t, r.URL.Path, "/comments/101")
					fmt.Fprint(w, `{"id":101}`)
				case r.Method == http.MethodPost:
					created = true
					var payload struct {
						Body string `json:"body"`
					}
					require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
					assert.True(t, strings.Contains(payload.Body, "<!-- quality-marker -->"))
					fmt.Fprint(w, `{"id":102}`)
				}
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			err := gateway.UpsertComment(context.Background(), "org", "repo", 7,
				"<!-- quality-marker -->", "<!-- quality-marker -->\nnew report")
			require.NoError(t, err)
			assert.Equal(t, tc.expectEdit, edited)
			assert.Equal(t, tc.expectCreated, created)
		})
	}
}

func TestGitHubGateway_ApplyLabel(t *testing.T) {
	var removed []string
	var added []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			fmt.Fprint(w, `[{"name":"quality:poor"},{"name":"bug"}]`)
		case r.Method == http.MethodDelete:
			parts := strings.Split(r.URL.Path, "/")
			removed = append(removed, parts[len(parts)-1])
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost:
			var labels []string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&labels))
			added = append(added, labels...)
			fmt.Fprint(w, `[{"name":"quality:good"}]`)
		}
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	err := gateway.ApplyLabel(context.Background(), "org", "repo", 7, "quality:good")
	require.NoError(t, err)

	assert.Equal(t, []string{"quality:poor"}, removed, "stale quality label removed, unrelated label kept")
	assert.Equal(t, []string{"quality:good"}, added)
}

func TestGitHubGateway_ApplyLabelAlreadyPresent(t *testing.T) {
	var mutations int
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `[{"name":"quality:good"}]`)
			return
		}
		mutations++
		w.WriteHeader(http.StatusOK)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	err := gateway.ApplyLabel(context.Background(), "org", "repo", 7, "quality:good")
	require.NoError(t, err)
	assert.Zero(t, mutations, "an already-correct label must not be rewritten")
}
