package driven

import (
	"context"

	"github.com/previewpub/previewpub/internal/domain/model"
)

// CursorStore defines the driven port for the per-ref latest-commit ledger.
type CursorStore interface {
	// Get returns the cursor for (owner, repo, ref), or nil when none exists.
	Get(ctx context.Context, owner, repo, ref string) (*model.Cursor, error)
	// CompareAndSet writes candidate only when no cursor exists for the key
	// or the stored run number is lower than the candidate's. The operation
	// must be linearizable per key; a dropped stale candidate is not an error.
	CompareAndSet(ctx context.Context, owner, repo, ref string, candidate model.Cursor) error
}
