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
var _ driven.CursorStore = (*CursorRepo)(nil)

// CursorRepo is the SQLite implementation of the CursorStore port interface.
type CursorRepo struct {
	db *DB
}

// NewCursorRepo creates a new CursorRepo backed by the given DB.
func NewCursorRepo(db *DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// Get returns the cursor for (owner, repo, ref), or nil when none exists.
func (r *CursorRepo) Get(ctx context.Context, owner, repo, ref string) (*model.Cursor, error) {
	const query = `SELECT sha, run_number FROM cursors WHERE owner = ? AND repo = ? AND ref = ?`

	var cursor model.Cursor
	err := r.db.Reader.QueryRowContext(ctx, query, owner, repo, ref).Scan(
		&cursor.SHA, &cursor.RunNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor for %s/%s@%s: %w", owner, repo, ref, err)
	}

	return &cursor, nil
}

// CompareAndSet writes candidate only when no cursor exists for the key or
// the stored run number is lower than the candidate's. The read-modify-write
// happens inside a single upsert statement on the single-connection writer,
// which makes it linearizable per key; racing publishes for the same ref
// resolve to the highest run number regardless of arrival order, and a
// dropped stale candidate is silent.
func (r *CursorRepo) CompareAndSet(ctx context.Context, owner, repo, ref string, candidate model.Cursor) error {
	const query = `
		INSERT INTO cursors (owner, repo, ref, sha, run_number)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner, repo, ref) DO UPDATE SET
			sha = excluded.sha,
			run_number = excluded.run_number,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE excluded.run_number > cursors.run_number
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, owner, repo, ref, candidate.SHA, candidate.RunNumber); err != nil {
		return fmt.Errorf("compare-and-set cursor for %s/%s@%s: %w", owner, repo, ref, err)
	}

	return nil
}
