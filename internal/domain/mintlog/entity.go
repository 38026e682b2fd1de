// internal/domain/mintlog/entity.go
package mintlog

import (
	"errors"
	"strings"
	"time"
)

// ------------------------------------------------------
// Entity: Entry (mint_logs テーブル 1 レコード)
// ------------------------------------------------------
//
// 1 回のミント試行につき 1 行。status / asset 系カラム以外は append-only。
//
// 想定テーブル構造:
//
// - id          : string (PK)
// - avatarId    : string
// - mintType    : string            // 例: "collectible", "soulbound", "userPaid"
// - itemKey     : string            // 供給上限・dedup のキー(任意)
// - status      : string            // prepared | pending | confirmed | failed
// - assetId     : *string
// - signature   : *string
// - metadataUri : string
// - errorNote   : *string
// - createdAt   : time.Time
// - confirmedAt : *time.Time

type Status string

const (
	StatusPrepared  Status = "prepared"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

type Entry struct {
	ID          string     `json:"id"`
	AvatarID    string     `json:"avatarId"`
	MintType    string     `json:"mintType"`
	ItemKey     string     `json:"itemKey,omitempty"`
	Status      Status     `json:"status"`
	AssetID     *string    `json:"assetId,omitempty"`
	Signature   *string    `json:"signature,omitempty"`
	MetadataURI string     `json:"metadataUri"`
	ErrorNote   *string    `json:"errorNote,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidAvatarID = errors.New("mintlog: invalid avatarId")
	ErrInvalidMintType = errors.New("mintlog: invalid mintType")
	ErrInvalidStatus   = errors.New("mintlog: invalid status")
	ErrNotFound        = errors.New("mintlog: not found")

	// ErrConflict: confirm-once 違反。すでに別のリクエストが
	// prepared を越えて進めているか、呼び出し元の avatar の行ではない。
	ErrConflict = errors.New("mintlog: status conflict")

	// ErrSupplyExhausted: 供給上限チェックで在庫なし。チェーン呼び出し前に返る。
	ErrSupplyExhausted = errors.New("mintlog: supply exhausted")
)

// ------------------------------------------------------
// Constructors
// ------------------------------------------------------

func NewEntry(id, avatarID, mintType, itemKey, metadataURI string, status Status, now time.Time) (Entry, error) {
	aid := strings.TrimSpace(avatarID)
	if aid == "" {
		return Entry{}, ErrInvalidAvatarID
	}
	mt := strings.TrimSpace(mintType)
	if mt == "" {
		return Entry{}, ErrInvalidMintType
	}
	if status != StatusPrepared && status != StatusPending {
		return Entry{}, ErrInvalidStatus
	}

	return Entry{
		ID:          strings.TrimSpace(id),
		AvatarID:    aid,
		MintType:    mt,
		ItemKey:     strings.TrimSpace(itemKey),
		Status:      status,
		MetadataURI: strings.TrimSpace(metadataURI),
		CreatedAt:   now.UTC(),
	}, nil
}

// ------------------------------------------------------
// State machine
// ------------------------------------------------------

// CanTransition reports whether moving from the current status to next is
// allowed. prepared → pending → confirmed|failed; prepared → failed is also
// allowed (reservation abandoned before submission).
func (e Entry) CanTransition(next Status) bool {
	switch e.Status {
	case StatusPrepared:
		return next == StatusPending || next == StatusFailed
	case StatusPending:
		return next == StatusConfirmed || next == StatusFailed
	default:
		return false
	}
}

// Confirm finalizes the entry with on-chain results.
func (e *Entry) Confirm(assetID, signature string, now time.Time) error {
	if !e.CanTransition(StatusConfirmed) {
		return ErrConflict
	}
	a := strings.TrimSpace(assetID)
	s := strings.TrimSpace(signature)
	t := now.UTC()
	e.Status = StatusConfirmed
	e.AssetID = &a
	e.Signature = &s
	e.ConfirmedAt = &t
	return nil
}

// Fail records the failure reason. Safe from prepared or pending.
func (e *Entry) Fail(note string) error {
	if !e.CanTransition(StatusFailed) {
		return ErrConflict
	}
	n := strings.TrimSpace(note)
	e.Status = StatusFailed
	e.ErrorNote = &n
	return nil
}

// DDL reference (for schema alignment with migrations)
const MintLogsTableDDL = `
CREATE TABLE mint_logs (
  id UUID PRIMARY KEY,
  avatar_id TEXT NOT NULL,
  mint_type TEXT NOT NULL,
  item_key TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  asset_id TEXT,
  signature TEXT,
  metadata_uri TEXT NOT NULL DEFAULT '',
  error_note TEXT,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  confirmed_at TIMESTAMPTZ,

  CONSTRAINT mint_logs_status_check CHECK (status IN ('prepared', 'pending', 'confirmed', 'failed'))
);

CREATE INDEX idx_mint_logs_item_key ON mint_logs (item_key, status, created_at);
CREATE INDEX idx_mint_logs_avatar ON mint_logs (avatar_id, created_at);
`
