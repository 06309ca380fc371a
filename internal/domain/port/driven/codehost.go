package driven

import (
	"context"

	"github.com/previewpub/previewpub/internal/domain/model"
)

// CodeHost defines the driven port for the code-hosting platform's REST API.
// Only the operations the status reporter needs are exposed.
type CodeHost interface {
	// ListCheckRuns returns the check runs with the given name on the commit,
	// filtered to those created by this application.
	ListCheckRuns(ctx context.Context, owner, repo, sha, checkName string) ([]model.CheckRunRef, error)
	// CreateCheckRun creates a check run on the commit and returns its
	// reference.
	CreateCheckRun(ctx context.Context, owner, repo string, spec model.CheckRunSpec) (model.CheckRunRef, error)
	// FindAppComment scans the pull request's comments page by page for one
	// authored via this application's installed identity, stopping at the
	// first match. Returns nil when no such comment exists.
	FindAppComment(ctx context.Context, owner, repo string, prNumber int) (*model.CommentRef, error)
	// CreateComment posts a new comment on the pull request.
	CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) error
	// UpdateComment replaces the body of an existing comment.
	UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error
	// InstallationPermissions returns the app installation's permission map
	// for the repository. Used only as logging context on comment failures.
	InstallationPermissions(ctx context.Context, owner, repo string) (map[string]string, error)
}
