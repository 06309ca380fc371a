// Package github implements the CodeHost port using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CodeHost = (*Client)(nil)

// Client implements the driven.CodeHost port using the go-github library.
// Check runs are filtered by the application's numeric ID; the bot comment
// is identified by the application's bot login (User.Type "Bot"), never by
// comment content.
type Client struct {
	gh       *gh.Client
	appID    int64
	botLogin string
}

// NewClient creates a new GitHub API client with the following transport
// stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with token auth)
func NewClient(token string, appID int64, botLogin string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:       client,
		appID:    appID,
		botLogin: botLogin,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, appID int64, botLogin string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:       client,
		appID:    appID,
		botLogin: botLogin,
	}, nil
}

// ListCheckRuns returns the check runs with the given name on the commit,
// restricted to runs created by this application. An appID of 0 means no
// app is configured; the filter is omitted then, since sending app_id=0
// would match nothing and every lookup would come back empty.
func (c *Client) ListCheckRuns(ctx context.Context, owner, repo, sha, checkName string) ([]model.CheckRunRef, error) {
	opts := &gh.ListCheckRunsOptions{
		CheckName: gh.Ptr(checkName),
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}
	if c.appID != 0 {
		opts.AppID = gh.Ptr(c.appID)
	}

	results, _, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, sha, opts)
	if err != nil {
		return nil, fmt.Errorf("listing check runs for %s/%s@%s: %w", owner, repo, sha, err)
	}

	refs := make([]model.CheckRunRef, 0, len(results.CheckRuns))
	for _, run := range results.CheckRuns {
		refs = append(refs, model.CheckRunRef{
			ID:      run.GetID(),
			HTMLURL: run.GetHTMLURL(),
		})
	}

	return refs, nil
}

// CreateCheckRun creates a check run on the commit and returns its reference.
func (c *Client) CreateCheckRun(ctx context.Context, owner, repo string, spec model.CheckRunSpec) (model.CheckRunRef, error) {
	opts := gh.CreateCheckRunOptions{
		Name:       spec.Name,
		HeadSHA:    spec.HeadSHA,
		Conclusion: gh.Ptr(spec.Conclusion),
		Output: &gh.CheckRunOutput{
			Title:   gh.Ptr(spec.Title),
			Summary: gh.Ptr(spec.Summary),
			Text:    gh.Ptr(spec.Text),
		},
	}

	run, _, err := c.gh.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		return model.CheckRunRef{}, fmt.Errorf("creating check run for %s/%s@%s: %w", owner, repo, spec.HeadSHA, err)
	}

	return model.CheckRunRef{
		ID:      run.GetID(),
		HTMLURL: run.GetHTMLURL(),
	}, nil
}

// FindAppComment scans the pull request's comments for the first one
// authored by this application's bot identity. Pagination short-circuits:
// once a match is found no further pages are fetched.
func (c *Client) FindAppComment(ctx context.Context, owner, repo string, prNumber int) (*model.CommentRef, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d (page %d): %w", owner, repo, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			if c.isAppComment(comment) {
				return &model.CommentRef{ID: comment.GetID()}, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// isAppComment reports whether the comment was authored via this
// application's installed identity.
func (c *Client) isAppComment(comment *gh.IssueComment) bool {
	user := comment.GetUser()
	return user.GetType() == "Bot" && user.GetLogin() == c.botLogin
}

// CreateComment posts a new comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, prNumber, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s/%s#%d: %w", owner, repo, prNumber, err)
	}

	return nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	_, _, err := c.gh.Issues.EditComment(ctx, owner, repo, commentID, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("updating comment %d on %s/%s: %w", commentID, owner, repo, err)
	}

	return nil
}

// InstallationPermissions returns the app installation's permission map for
// the repository. Only the permissions relevant to publishing are reported;
// the caller uses them purely as logging context.
func (c *Client) InstallationPermissions(ctx context.Context, owner, repo string) (map[string]string, error) {
	installation, _, err := c.gh.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("finding installation for %s/%s: %w", owner, repo, err)
	}

	perms := installation.GetPermissions()
	return map[string]string{
		"checks":        perms.GetChecks(),
		"contents":      perms.GetContents(),
		"issues":        perms.GetIssues(),
		"pull_requests": perms.GetPullRequests(),
	}, nil
}
