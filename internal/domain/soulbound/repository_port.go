// internal/domain/soulbound/repository_port.go
package soulbound

import (
	"context"
	"time"
)

// ------------------------------------------------------
// Repository Port for soulbound_items / campaign_soulbound_items
// ------------------------------------------------------

type Repository interface {
	// Get returns the global record for (avatarId, itemName), or ErrNotFound.
	Get(ctx context.Context, avatarID, itemName string) (Item, error)

	// Claim atomically inserts a placeholder row via
	// INSERT ... ON CONFLICT DO NOTHING. claimed=false means another request
	// already holds the slot; the caller should re-read and return the
	// existing record instead of minting again.
	Claim(ctx context.Context, item Item) (claimed bool, err error)

	// Finalize replaces the placeholder with the real asset id, freeze
	// signature and isFrozen=true.
	Finalize(ctx context.Context, avatarID, itemName, assetID, freezeSignature string) error

	// Delete removes the row. Compensation path: a failed attempt must never
	// leave a permanently stuck placeholder.
	Delete(ctx context.Context, avatarID, itemName string) error

	// ListStuckReservations returns placeholder rows older than age
	// (operational scan).
	ListStuckReservations(ctx context.Context, age time.Duration) ([]Item, error)

	// --- campaign mapping -------------------------------------------------

	// GetCampaign returns the campaign-scoped mapping, or ErrNotFound.
	GetCampaign(ctx context.Context, avatarID, campaignID, itemName string) (CampaignItem, error)

	// PutCampaign writes the mapping (idempotent upsert).
	PutCampaign(ctx context.Context, m CampaignItem) error
}
