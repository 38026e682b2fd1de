// internal/adapters/out/db/mintlog_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbcommon "fableforge/internal/adapters/out/db/common"
	logdom "fableforge/internal/domain/mintlog"
)

type MintLogRepositoryPG struct {
	DB *sql.DB
}

var _ logdom.Repository = (*MintLogRepositoryPG)(nil)

func NewMintLogRepositoryPG(db *sql.DB) *MintLogRepositoryPG {
	return &MintLogRepositoryPG{DB: db}
}

// ========== Mutations ==========

func (r *MintLogRepositoryPG) Create(ctx context.Context, e logdom.Entry) (logdom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}

	_, err := run.ExecContext(ctx, `
INSERT INTO mint_logs
  (id, avatar_id, mint_type, item_key, status, asset_id, signature, metadata_uri, error_note, created_at, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`, e.ID, e.AvatarID, e.MintType, e.ItemKey, string(e.Status),
		e.AssetID, e.Signature, e.MetadataURI, e.ErrorNote, e.CreatedAt, e.ConfirmedAt)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			// 同一 ID の再挿入。リトライが同じ予約を二重化しようとしている。
			return logdom.Entry{}, fmt.Errorf("%w: mint log %s already exists", logdom.ErrConflict, e.ID)
		}
		return logdom.Entry{}, err
	}
	return e, nil
}

// AdvanceToPending flips prepared → pending under a row lock. Exactly one
// concurrent confirm call observes a matching status and owner; the rest get
// ErrConflict.
func (r *MintLogRepositoryPG) AdvanceToPending(ctx context.Context, id, avatarID string) (logdom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT id, avatar_id, mint_type, item_key, status, asset_id, signature, metadata_uri, error_note, created_at, confirmed_at
FROM mint_logs
WHERE id = $1
FOR UPDATE
`, id)

	e, err := scanMintLogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return logdom.Entry{}, logdom.ErrNotFound
	}
	if err != nil {
		return logdom.Entry{}, err
	}

	if e.AvatarID != avatarID {
		return logdom.Entry{}, logdom.ErrConflict
	}
	if e.Status != logdom.StatusPrepared && e.Status != logdom.StatusPending {
		return logdom.Entry{}, logdom.ErrConflict
	}

	if e.Status == logdom.StatusPrepared {
		if _, err := run.ExecContext(ctx, `
UPDATE mint_logs SET status = $2 WHERE id = $1
`, id, string(logdom.StatusPending)); err != nil {
			return logdom.Entry{}, err
		}
		e.Status = logdom.StatusPending
	}
	return e, nil
}

func (r *MintLogRepositoryPG) MarkConfirmed(ctx context.Context, id, assetID, signature string, at time.Time) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	res, err := run.ExecContext(ctx, `
UPDATE mint_logs
SET status = $2, asset_id = $3, signature = $4, confirmed_at = $5
WHERE id = $1 AND status = $6
`, id, string(logdom.StatusConfirmed), assetID, signature, at.UTC(), string(logdom.StatusPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return logdom.ErrConflict
	}
	return nil
}

func (r *MintLogRepositoryPG) MarkFailed(ctx context.Context, id, note string) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	res, err := run.ExecContext(ctx, `
UPDATE mint_logs
SET status = $2, error_note = $3
WHERE id = $1 AND status IN ($4, $5)
`, id, string(logdom.StatusFailed), note, string(logdom.StatusPrepared), string(logdom.StatusPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return logdom.ErrConflict
	}
	return nil
}

// ========== Queries ==========

func (r *MintLogRepositoryPG) Get(ctx context.Context, id string) (logdom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT id, avatar_id, mint_type, item_key, status, asset_id, signature, metadata_uri, error_note, created_at, confirmed_at
FROM mint_logs
WHERE id = $1
`, id)

	e, err := scanMintLogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return logdom.Entry{}, logdom.ErrNotFound
	}
	return e, err
}

// CountActiveForItem counts rows holding a unit of supply for itemKey:
// confirmed and pending always count; prepared counts only while fresh, so a
// permanently stuck prepared row cannot starve supply forever.
func (r *MintLogRepositoryPG) CountActiveForItem(ctx context.Context, itemKey string, freshness time.Duration) (int, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	// Per-item advisory lock serializes concurrent reservations for the same
	// item across avatars (the whitelist row lock only covers one avatar).
	// Held until the surrounding transaction ends.
	if _, err := run.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, itemKey); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-freshness)

	var n int
	err := run.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM mint_logs
WHERE item_key = $1
  AND (
    status IN ($2, $3)
    OR (status = $4 AND created_at > $5)
  )
`, itemKey,
		string(logdom.StatusConfirmed), string(logdom.StatusPending),
		string(logdom.StatusPrepared), cutoff,
	).Scan(&n)
	return n, err
}

func (r *MintLogRepositoryPG) ListStuck(ctx context.Context, age time.Duration) ([]logdom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	cutoff := time.Now().UTC().Add(-age)

	rows, err := run.QueryContext(ctx, `
SELECT id, avatar_id, mint_type, item_key, status, asset_id, signature, metadata_uri, error_note, created_at, confirmed_at
FROM mint_logs
WHERE status IN ($1, $2) AND created_at < $3
ORDER BY created_at ASC
`, string(logdom.StatusPrepared), string(logdom.StatusPending), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []logdom.Entry
	for rows.Next() {
		e, err := scanMintLogEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ========== Scan helpers ==========

func scanMintLogEntry(s dbcommon.RowScanner) (logdom.Entry, error) {
	var (
		e      logdom.Entry
		status string
	)
	err := s.Scan(
		&e.ID, &e.AvatarID, &e.MintType, &e.ItemKey, &status,
		&e.AssetID, &e.Signature, &e.MetadataURI, &e.ErrorNote,
		&e.CreatedAt, &e.ConfirmedAt,
	)
	if err != nil {
		return logdom.Entry{}, err
	}
	e.Status = logdom.Status(status)
	return e, nil
}
