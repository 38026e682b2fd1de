// internal/domain/mintlog/repository_port.go
package mintlog

import (
	"context"
	"time"
)

// ------------------------------------------------------
// Repository Port for mint_logs
// ------------------------------------------------------

type Repository interface {
	// Create inserts the entry. When e.ID is empty the implementation assigns
	// one; the returned Entry carries the stored ID.
	Create(ctx context.Context, e Entry) (Entry, error)

	// Get returns the entry or ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// AdvanceToPending flips a row from prepared to pending, but only when the
	// current status still matches prepared/pending AND the row belongs to
	// avatarID. Implemented with SELECT ... FOR UPDATE so that exactly one
	// concurrent confirm call wins; the rest get ErrConflict.
	AdvanceToPending(ctx context.Context, id, avatarID string) (Entry, error)

	// MarkConfirmed finalizes a pending row with on-chain results.
	MarkConfirmed(ctx context.Context, id, assetID, signature string, at time.Time) error

	// MarkFailed records the failure note. Valid from prepared or pending.
	MarkFailed(ctx context.Context, id, note string) error

	// CountActiveForItem counts rows for itemKey whose status is confirmed or
	// pending, or prepared with createdAt newer than freshness. The freshness
	// window keeps permanently stuck prepared rows from starving supply while
	// still counting genuinely in-flight attempts. Runs inside the caller's
	// transaction (supply checks must share the reservation transaction).
	CountActiveForItem(ctx context.Context, itemKey string, freshness time.Duration) (int, error)

	// ListStuck returns prepared/pending rows older than age (operational scan).
	ListStuck(ctx context.Context, age time.Duration) ([]Entry, error)
}
