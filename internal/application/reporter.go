package application

import (
	"context"
	"log/slog"

	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// StatusReporter reconciles a commit's check run and a pull request's bot
// comment after a durable publish. By the time it runs the artifacts are
// stored and the cursor is advanced; every failure here is logged and
// swallowed and the publish still reports success.
type StatusReporter struct {
	host   driven.CodeHost
	logger *slog.Logger
}

// NewStatusReporter creates a StatusReporter.
func NewStatusReporter(host driven.CodeHost, logger *slog.Logger) *StatusReporter {
	return &StatusReporter{host: host, logger: logger}
}

// Report runs the check-run track and, when the ref denotes a pull request
// and the comment mode allows it, the comment track. It returns the check
// run's URL when known, empty otherwise.
func (r *StatusReporter) Report(ctx context.Context, in MessageInput) string {
	checkRunURL := r.reconcileCheckRun(ctx, in)

	prNumber, isPR := in.Claim.PullRequestNumber()
	if !isPR || in.Request.Comment == model.CommentOff {
		return checkRunURL
	}

	in.CheckRunURL = checkRunURL
	r.reconcileComment(ctx, in, prNumber)

	return checkRunURL
}

// reconcileCheckRun creates the commit's check run if it does not exist yet.
// A second publish for the same commit (another package from the same run,
// or a retry) reuses the existing run's URL without mutating its content.
func (r *StatusReporter) reconcileCheckRun(ctx context.Context, in MessageInput) string {
	claim := in.Claim

	runs, err := r.host.ListCheckRuns(ctx, claim.Owner, claim.Repo, claim.SHA, CheckRunName)
	if err != nil {
		r.logger.Error("failed to list check runs",
			"repo", claim.RepoFullName(), "sha", claim.SHA, "error", err)
		return ""
	}

	if len(runs) > 0 {
		return runs[0].HTMLURL
	}

	ref, err := r.host.CreateCheckRun(ctx, claim.Owner, claim.Repo, model.CheckRunSpec{
		Name:       CheckRunName,
		HeadSHA:    claim.SHA,
		Title:      "Successful",
		Summary:    "Published successfully.",
		Text:       CommitMessage(in),
		Conclusion: "success",
	})
	if err != nil {
		r.logger.Error("failed to create check run",
			"repo", claim.RepoFullName(), "sha", claim.SHA, "error", err)
		return ""
	}

	return ref.HTMLURL
}

// reconcileComment finds the bot's prior comment on the pull request and
// edits it in place (mode update) or posts a new one. A newly created
// comment pins install links to the commit SHA unless the mode is update, in
// which case ref links are used so later publishes keep them current.
func (r *StatusReporter) reconcileComment(ctx context.Context, in MessageInput, prNumber int) {
	claim := in.Claim

	prev, err := r.host.FindAppComment(ctx, claim.Owner, claim.Repo, prNumber)
	if err != nil {
		// Skipping rather than blindly creating keeps the one-comment-per-PR
		// invariant; the next publish will reconcile.
		r.logCommentFailure(ctx, claim, prNumber, "failed to search for previous comment", err)
		return
	}

	if in.Request.Comment == model.CommentUpdate {
		in.Kind = LinkRef
	} else {
		in.Kind = LinkSHA
	}
	body := PullRequestMessage(in)

	if in.Request.Comment == model.CommentUpdate && prev != nil {
		if err := r.host.UpdateComment(ctx, claim.Owner, claim.Repo, prev.ID, body); err != nil {
			r.logCommentFailure(ctx, claim, prNumber, "failed to update comment", err)
		}
		return
	}

	if err := r.host.CreateComment(ctx, claim.Owner, claim.Repo, prNumber, body); err != nil {
		r.logCommentFailure(ctx, claim, prNumber, "failed to create comment", err)
	}
}

// logCommentFailure logs a comment-track failure together with the app
// installation's permissions, which is usually the explanation (the app not
// being granted write access to issues). The permission lookup is itself
// best-effort.
func (r *StatusReporter) logCommentFailure(ctx context.Context, claim model.Claim, prNumber int, msg string, err error) {
	attrs := []any{
		"repo", claim.RepoFullName(),
		"pr", prNumber,
		"error", err,
	}

	perms, permErr := r.host.InstallationPermissions(ctx, claim.Owner, claim.Repo)
	if permErr != nil {
		attrs = append(attrs, "permissions_error", permErr)
	} else {
		attrs = append(attrs, "permissions", perms)
	}

	r.logger.Error(msg, attrs...)
}
