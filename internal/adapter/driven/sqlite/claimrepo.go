package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/previewpub/previewpub/internal/domain/model"
	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ClaimStore = (*ClaimRepo)(nil)

// ClaimRepo is the SQLite implementation of the ClaimStore port interface.
type ClaimRepo struct {
	db *DB
}

// NewClaimRepo creates a new ClaimRepo backed by the given DB.
func NewClaimRepo(db *DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// Put registers a claim under the given token. Re-registering the same token
// replaces the claim, which covers a CI run restarted before publishing.
func (r *ClaimRepo) Put(ctx context.Context, token string, claim model.Claim) error {
	const query = `
		INSERT INTO claims (token, owner, repo, ref, sha)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			owner = excluded.owner,
			repo = excluded.repo,
			ref = excluded.ref,
			sha = excluded.sha
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, token, claim.Owner, claim.Repo, claim.Ref, claim.SHA); err != nil {
		return fmt.Errorf("put claim for %s/%s: %w", claim.Owner, claim.Repo, err)
	}

	return nil
}

// Resolve returns the claim for the token, or nil when the token is unknown
// or already consumed.
func (r *ClaimRepo) Resolve(ctx context.Context, token string) (*model.Claim, error) {
	const query = `SELECT owner, repo, ref, sha FROM claims WHERE token = ?`

	var claim model.Claim
	err := r.db.Reader.QueryRowContext(ctx, query, token).Scan(
		&claim.Owner, &claim.Repo, &claim.Ref, &claim.SHA,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve claim: %w", err)
	}

	return &claim, nil
}

// Consume deletes the claim. Deleting an already-consumed token is a no-op.
func (r *ClaimRepo) Consume(ctx context.Context, token string) error {
	const query = `DELETE FROM claims WHERE token = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("consume claim: %w", err)
	}

	return nil
}
