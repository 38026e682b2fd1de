// internal/domain/soulbound/entity.go
package soulbound

import (
	"errors"
	"strings"
	"time"
)

// ------------------------------------------------------
// Entity: Item (soulbound_items テーブル 1 レコード)
// ------------------------------------------------------
//
// (avatarId, itemName) でユニーク。ライフサイクル:
//
//	reserved (assetId = placeholder) → minted → frozen
//
// 途中で失敗した試行は行ごと削除してリトライ可能にする。
//
// 想定テーブル構造:
//
// - avatarId        : string
// - itemName        : string
// - assetId         : string   // 予約中は PlaceholderAssetID
// - isFrozen        : bool
// - freezeSignature : *string
// - createdAt       : time.Time
// - updatedAt       : time.Time

// PlaceholderAssetID is stored while the (avatarId, itemName) slot is claimed
// but the chain mint has not produced a real asset id yet.
const PlaceholderAssetID = "pending"

type Item struct {
	AvatarID        string    `json:"avatarId"`
	ItemName        string    `json:"itemName"`
	AssetID         string    `json:"assetId"`
	IsFrozen        bool      `json:"isFrozen"`
	FreezeSignature *string   `json:"freezeSignature,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CampaignItem layers a per-campaign mapping on top of Item so an existing
// global asset can be adopted into a campaign without re-minting.
type CampaignItem struct {
	AvatarID   string    `json:"avatarId"`
	CampaignID string    `json:"campaignId"`
	ItemName   string    `json:"itemName"`
	AssetID    string    `json:"assetId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidAvatarID   = errors.New("soulbound: invalid avatarId")
	ErrInvalidItemName   = errors.New("soulbound: invalid itemName")
	ErrInvalidCampaignID = errors.New("soulbound: invalid campaignId")
	ErrNotFound          = errors.New("soulbound: not found")
)

// ------------------------------------------------------
// Constructors
// ------------------------------------------------------

// NewReservedItem builds the placeholder row used to claim the
// (avatarId, itemName) slot before the chain mint runs.
func NewReservedItem(avatarID, itemName string, now time.Time) (Item, error) {
	aid := strings.TrimSpace(avatarID)
	if aid == "" {
		return Item{}, ErrInvalidAvatarID
	}
	name := strings.TrimSpace(itemName)
	if name == "" {
		return Item{}, ErrInvalidItemName
	}

	return Item{
		AvatarID:  aid,
		ItemName:  name,
		AssetID:   PlaceholderAssetID,
		IsFrozen:  false,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// IsReserved reports whether the row is still a claim placeholder.
func (i Item) IsReserved() bool {
	return i.AssetID == PlaceholderAssetID
}

// DDL reference (for schema alignment with migrations)
const SoulboundItemsTableDDL = `
CREATE TABLE soulbound_items (
  avatar_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  asset_id TEXT NOT NULL,
  is_frozen BOOLEAN NOT NULL DEFAULT FALSE,
  freeze_signature TEXT,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  PRIMARY KEY (avatar_id, item_name)
);
`

const CampaignSoulboundItemsTableDDL = `
CREATE TABLE campaign_soulbound_items (
  avatar_id TEXT NOT NULL,
  campaign_id TEXT NOT NULL,
  item_name TEXT NOT NULL,
  asset_id TEXT NOT NULL,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  PRIMARY KEY (avatar_id, campaign_id, item_name)
);
`
