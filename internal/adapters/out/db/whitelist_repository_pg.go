// internal/adapters/out/db/whitelist_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbcommon "fableforge/internal/adapters/out/db/common"
	wldom "fableforge/internal/domain/whitelist"
)

type WhitelistRepositoryPG struct {
	DB *sql.DB
}

var _ wldom.Repository = (*WhitelistRepositoryPG)(nil)

func NewWhitelistRepositoryPG(db *sql.DB) *WhitelistRepositoryPG {
	return &WhitelistRepositoryPG{DB: db}
}

// ========== Queries ==========

func (r *WhitelistRepositoryPG) Get(ctx context.Context, avatarID string) (wldom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT avatar_id, max_mints, mints_used, is_active, created_at, updated_at
FROM whitelist_entries
WHERE avatar_id = $1
`, avatarID)

	e, err := scanWhitelistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wldom.Entry{}, wldom.ErrNotFound
	}
	return e, err
}

// ========== Mutations ==========

func (r *WhitelistRepositoryPG) Upsert(ctx context.Context, e wldom.Entry) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	_, err := run.ExecContext(ctx, `
INSERT INTO whitelist_entries (avatar_id, max_mints, mints_used, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (avatar_id) DO UPDATE SET
  max_mints = EXCLUDED.max_mints,
  is_active = EXCLUDED.is_active,
  updated_at = EXCLUDED.updated_at
`, e.AvatarID, e.MaxMints, e.MintsUsed, e.IsActive, e.CreatedAt, e.UpdatedAt)
	return err
}

// ConsumeSlot locks the row FOR UPDATE, re-checks the allowance under the
// lock, then increments mints_used. Must run inside the reservation
// transaction; the row lock is what serializes concurrent reservations
// across server instances.
func (r *WhitelistRepositoryPG) ConsumeSlot(ctx context.Context, avatarID string) (wldom.Entry, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT avatar_id, max_mints, mints_used, is_active, created_at, updated_at
FROM whitelist_entries
WHERE avatar_id = $1
FOR UPDATE
`, avatarID)

	e, err := scanWhitelistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wldom.Entry{}, wldom.ErrNotWhitelisted
	}
	if err != nil {
		return wldom.Entry{}, err
	}

	if !e.IsActive {
		return wldom.Entry{}, wldom.ErrNotWhitelisted
	}
	if !e.CanMint() {
		return wldom.Entry{}, wldom.ErrQuotaExceeded
	}

	now := time.Now().UTC()
	_, err = run.ExecContext(ctx, `
UPDATE whitelist_entries
SET mints_used = mints_used + 1, updated_at = $2
WHERE avatar_id = $1
`, avatarID, now)
	if err != nil {
		return wldom.Entry{}, err
	}

	e.MintsUsed++
	e.UpdatedAt = now
	return e, nil
}

// ReleaseSlot is the compensation path: give the reserved slot back after a
// failed chain mint. Floors at zero.
func (r *WhitelistRepositoryPG) ReleaseSlot(ctx context.Context, avatarID string) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	_, err := run.ExecContext(ctx, `
UPDATE whitelist_entries
SET mints_used = GREATEST(mints_used - 1, 0), updated_at = $2
WHERE avatar_id = $1
`, avatarID, time.Now().UTC())
	return err
}

// ========== Scan helpers ==========

func scanWhitelistEntry(s dbcommon.RowScanner) (wldom.Entry, error) {
	var e wldom.Entry
	err := s.Scan(&e.AvatarID, &e.MaxMints, &e.MintsUsed, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
