// Package gateway provides access to the external collaborators of a
// quality run: the GitHub API and the results spreadsheet.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/prscore/prscore/internal/domain"
)

// PullRequestInfo holds the pull-request metadata logged alongside a run.
type PullRequestInfo struct {
	Title      string
	Author     string
	URL        string
	BaseBranch string
	HeadBranch string
	Additions  int
	Deletions  int
	FileCount  int
}

// Host defines the behavior of a gateway to the version-control host.
type Host interface {
	FetchPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequestInfo, error)
	FetchChangedFiles(ctx context.Context, owner, repo string, number int) (*domain.ChangeSet, error)
	// UpsertComment replaces the comment containing marker, or creates a
	// new one when no previous run commented.
	UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error
	// ApplyLabel swaps any existing label sharing the prefix of label for
	// the given one.
	ApplyLabel(ctx context.Context, owner, repo string, number int, label string) error
}

// GitHubGateway is the concrete implementation of the Host interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// pullRequestQuery fetches the metadata for one pull request in a single
// GraphQL round trip.
type pullRequestQuery struct {
	Repository struct {
		PullRequest struct {
			Title  githubv4.String
			URL    githubv4.URI `graphql:"url"`
			Author struct {
				Login githubv4.String
			}
			BaseRefName  githubv4.String
			HeadRefName  githubv4.String
			Additions    githubv4.Int
			Deletions    githubv4.Int
			ChangedFiles githubv4.Int
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Host, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchPullRequest retrieves the PR metadata via the GraphQL API.
func (g *GitHubGateway) FetchPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequestInfo, error) {
	g.logger.Printf("Fetching pull request %s/%s#%d metadata...", owner, repo, number)
	var q pullRequestQuery
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query pull request metadata: %w", err)
	}
	pr := q.Repository.PullRequest
	return &PullRequestInfo{
		Title:      string(pr.Title),
		Author:     string(pr.Author.Login),
		URL:        pr.URL.String(),
		BaseBranch: string(pr.BaseRefName),
		HeadBranch: string(pr.HeadRefName),
		Additions:  int(pr.Additions),
		Deletions:  int(pr.Deletions),
		FileCount:  int(pr.ChangedFiles),
	}, nil
}

// FetchChangedFiles retrieves the PR file list via the REST API, paging
// until exhausted.
func (g *GitHubGateway) FetchChangedFiles(ctx context.Context, owner, repo string, number int) (*domain.ChangeSet, error) {
	g.logger.Printf("Fetching changed files for %s/%s#%d...", owner, repo, number)
	opts := &github.ListOptions{PerPage: 100}
	var files []domain.ChangedFile
	for {
		page, resp, err := g.restClient.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull request files: %w", err)
		}
		for _, f := range page {
			files = append(files, domain.ChangedFile{
				Path:      f.GetFilename(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of changed files...")
	}
	g.logger.Printf("Completed fetching changed files: %d files.", len(files))
	return domain.NewChangeSet(files), nil
}

// UpsertComment finds the comment carrying marker and edits it in place,
// creating a fresh comment when none exists yet.
func (g *GitHubGateway) UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error {
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := g.restClient.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return fmt.Errorf("failed to list issue comments: %w", err)
		}
		for _, c := range comments {
			if marker != "" && strings.Contains(c.GetBody(), marker) {
				g.logger.Printf("Updating existing quality comment %d...", c.GetID())
				_, _, err := g.restClient.Issues.EditComment(ctx, owner, repo, c.GetID(), &github.IssueComment{Body: &body})
				if err != nil {
					return fmt.Errorf("failed to edit comment: %w", err)
				}
				return nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	g.logger.Println("Creating new quality comment...")
	_, _, err := g.restClient.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ApplyLabel removes stale labels that share the new label's prefix (up to
// and including the first colon), then adds the new one.
func (g *GitHubGateway) ApplyLabel(ctx context.Context, owner, repo string, number int, label string) error {
	prefix := label
	if i := strings.Index(label, ":"); i >= 0 {
		prefix = label[:i+1]
	}
	existing, _, err := g.restClient.Issues.ListLabelsByIssue(ctx, owner, repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		return fmt.Errorf("failed to list issue labels: %w", err)
	}
	for _, l := range existing {
		name := l.GetName()
		if name == label {
			return nil // already applied
		}
		if strings.HasPrefix(name, prefix) {
			g.logger.Printf("Removing stale label %q...", name)
			if _, err := g.restClient.Issues.RemoveLabelForIssue(ctx, owner, repo, number, name); err != nil {
				return fmt.Errorf("failed to remove label %q: %w", name, err)
			}
		}
	}
	g.logger.Printf("Applying label %q...", label)
	if _, _, err := g.restClient.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{label}); err != nil {
		return fmt.Errorf("failed to add label %q: %w", label, err)
	}
	return nil
}
