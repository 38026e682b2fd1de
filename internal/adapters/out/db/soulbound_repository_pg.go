// internal/adapters/out/db/soulbound_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbcommon "fableforge/internal/adapters/out/db/common"
	sbdom "fableforge/internal/domain/soulbound"
)

type SoulboundRepositoryPG struct {
	DB *sql.DB
}

var _ sbdom.Repository = (*SoulboundRepositoryPG)(nil)

func NewSoulboundRepositoryPG(db *sql.DB) *SoulboundRepositoryPG {
	return &SoulboundRepositoryPG{DB: db}
}

// ========== Global items ==========

func (r *SoulboundRepositoryPG) Get(ctx context.Context, avatarID, itemName string) (sbdom.Item, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT avatar_id, item_name, asset_id, is_frozen, freeze_signature, created_at, updated_at
FROM soulbound_items
WHERE avatar_id = $1 AND item_name = $2
`, avatarID, itemName)

	i, err := scanSoulboundItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sbdom.Item{}, sbdom.ErrNotFound
	}
	return i, err
}

// Claim inserts the placeholder row; ON CONFLICT DO NOTHING means a
// concurrent duplicate request simply reports claimed=false instead of
// erroring, and the caller re-reads the winner's row.
func (r *SoulboundRepositoryPG) Claim(ctx context.Context, item sbdom.Item) (bool, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	res, err := run.ExecContext(ctx, `
INSERT INTO soulbound_items (avatar_id, item_name, asset_id, is_frozen, freeze_signature, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (avatar_id, item_name) DO NOTHING
`, item.AvatarID, item.ItemName, item.AssetID, item.IsFrozen, item.FreezeSignature, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SoulboundRepositoryPG) Finalize(ctx context.Context, avatarID, itemName, assetID, freezeSignature string) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	res, err := run.ExecContext(ctx, `
UPDATE soulbound_items
SET asset_id = $3, is_frozen = TRUE, freeze_signature = $4, updated_at = $5
WHERE avatar_id = $1 AND item_name = $2
`, avatarID, itemName, assetID, freezeSignature, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sbdom.ErrNotFound
	}
	return nil
}

func (r *SoulboundRepositoryPG) Delete(ctx context.Context, avatarID, itemName string) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	_, err := run.ExecContext(ctx, `
DELETE FROM soulbound_items
WHERE avatar_id = $1 AND item_name = $2
`, avatarID, itemName)
	return err
}

func (r *SoulboundRepositoryPG) ListStuckReservations(ctx context.Context, age time.Duration) ([]sbdom.Item, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	cutoff := time.Now().UTC().Add(-age)

	rows, err := run.QueryContext(ctx, `
SELECT avatar_id, item_name, asset_id, is_frozen, freeze_signature, created_at, updated_at
FROM soulbound_items
WHERE asset_id = $1 AND created_at < $2
ORDER BY created_at ASC
`, sbdom.PlaceholderAssetID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []sbdom.Item
	for rows.Next() {
		i, err := scanSoulboundItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ========== Campaign mappings ==========

func (r *SoulboundRepositoryPG) GetCampaign(ctx context.Context, avatarID, campaignID, itemName string) (sbdom.CampaignItem, error) {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	row := run.QueryRowContext(ctx, `
SELECT avatar_id, campaign_id, item_name, asset_id, created_at
FROM campaign_soulbound_items
WHERE avatar_id = $1 AND campaign_id = $2 AND item_name = $3
`, avatarID, campaignID, itemName)

	var m sbdom.CampaignItem
	err := row.Scan(&m.AvatarID, &m.CampaignID, &m.ItemName, &m.AssetID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sbdom.CampaignItem{}, sbdom.ErrNotFound
	}
	return m, err
}

func (r *SoulboundRepositoryPG) PutCampaign(ctx context.Context, m sbdom.CampaignItem) error {
	run := dbcommon.RunnerFromCtx(ctx, r.DB)

	_, err := run.ExecContext(ctx, `
INSERT INTO campaign_soulbound_items (avatar_id, campaign_id, item_name, asset_id, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (avatar_id, campaign_id, item_name) DO NOTHING
`, m.AvatarID, m.CampaignID, m.ItemName, m.AssetID, m.CreatedAt)
	return err
}

// ========== Scan helpers ==========

func scanSoulboundItem(s dbcommon.RowScanner) (sbdom.Item, error) {
	var i sbdom.Item
	err := s.Scan(&i.AvatarID, &i.ItemName, &i.AssetID, &i.IsFrozen, &i.FreezeSignature, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
