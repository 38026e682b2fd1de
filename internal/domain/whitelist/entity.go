// internal/domain/whitelist/entity.go
package whitelist

import (
	"errors"
	"strings"
	"time"
)

// ------------------------------------------------------
// Entity: WhitelistEntry (whitelist_entries テーブル 1 レコード)
// ------------------------------------------------------
//
// 想定テーブル構造:
//
// - avatarId    : string (PK)
// - maxMints    : int    // 0 = unlimited
// - mintsUsed   : int
// - isActive    : bool
// - createdAt   : time.Time
// - updatedAt   : time.Time
type Entry struct {
	AvatarID  string    `json:"avatarId"`
	MaxMints  int       `json:"maxMints"`
	MintsUsed int       `json:"mintsUsed"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidAvatarID = errors.New("whitelist: invalid avatarId")
	ErrInvalidMaxMints = errors.New("whitelist: invalid maxMints")
	ErrNotWhitelisted  = errors.New("whitelist: entry not found or inactive")
	ErrQuotaExceeded   = errors.New("whitelist: quota exceeded")
	ErrNotFound        = errors.New("whitelist: not found")
)

// ------------------------------------------------------
// Constructors
// ------------------------------------------------------

func NewEntry(avatarID string, maxMints int, now time.Time) (Entry, error) {
	aid := strings.TrimSpace(avatarID)
	if aid == "" {
		return Entry{}, ErrInvalidAvatarID
	}
	if maxMints < 0 {
		return Entry{}, ErrInvalidMaxMints
	}

	return Entry{
		AvatarID:  aid,
		MaxMints:  maxMints,
		MintsUsed: 0,
		IsActive:  true,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// ------------------------------------------------------
// Domain logic
// ------------------------------------------------------

// Remaining returns the unused allowance. MaxMints == 0 means unlimited,
// in which case Remaining reports -1.
func (e Entry) Remaining() int {
	if e.MaxMints == 0 {
		return -1
	}
	r := e.MaxMints - e.MintsUsed
	if r < 0 {
		return 0
	}
	return r
}

// CanMint reports whether one more mint fits inside the allowance.
func (e Entry) CanMint() bool {
	if !e.IsActive {
		return false
	}
	if e.MaxMints == 0 {
		return true
	}
	return e.MintsUsed < e.MaxMints
}

// DDL reference (for schema alignment with migrations)
const WhitelistEntriesTableDDL = `
CREATE TABLE whitelist_entries (
  avatar_id TEXT PRIMARY KEY,
  max_mints INT NOT NULL DEFAULT 0,
  mints_used INT NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  CONSTRAINT whitelist_quota_check CHECK (max_mints = 0 OR mints_used <= max_mints)
);
`
