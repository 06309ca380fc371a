package driven

import (
	"context"

	"github.com/previewpub/previewpub/internal/domain/model"
)

// ClaimStore defines the driven port for single-use publish authorization.
// Claims are registered out-of-band when a CI run starts; the orchestrator
// resolves one before doing any work and consumes it only after the uploads
// and the cursor write have succeeded, so a failed publish can be retried
// with the same token. Consumption is the replay boundary: it is irreversible.
type ClaimStore interface {
	// Put registers (or re-registers) a claim under the given token.
	Put(ctx context.Context, token string, claim model.Claim) error
	// Resolve returns the claim for the token, or nil when the token is
	// unknown or already consumed.
	Resolve(ctx context.Context, token string) (*model.Claim, error)
	// Consume deletes the claim. Consuming an already-consumed token is a
	// no-op, not an error.
	Consume(ctx context.Context, token string) error
}
