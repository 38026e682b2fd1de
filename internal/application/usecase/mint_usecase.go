// internal/application/usecase/mint_usecase.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	logdom "fableforge/internal/domain/mintlog"
	wldom "fableforge/internal/domain/whitelist"
)

// ============================================================
// MintUsecase: 予約 → チェーン実行 → 確定/補償
// ============================================================
//
// 予約フェーズ(クォータ消費 + 供給チェック + pending ログ挿入)は 1 つの短い
// DB トランザクションで行い、チェーン呼び出しはその外側で行う。チェーンが
// 失敗したら failed へ倒してクォータを返す。

type MintUsecase struct {
	Whitelist wldom.Repository
	MintLogs  logdom.Repository
	Tx        TxRunner

	Minter   LedgerMintPort
	Uploader MetadataUploader
	Mirror   OpsMirrorPort // nil 可(ミラー無効)

	// FreshnessWindow bounds how long a prepared row keeps counting toward
	// an item's supply.
	FreshnessWindow time.Duration

	Now func() time.Time
}

func NewMintUsecase(
	wl wldom.Repository,
	logs logdom.Repository,
	tx TxRunner,
	minter LedgerMintPort,
	uploader MetadataUploader,
	mirror OpsMirrorPort,
	freshness time.Duration,
) *MintUsecase {
	if freshness <= 0 {
		freshness = 10 * time.Minute
	}
	return &MintUsecase{
		Whitelist:       wl,
		MintLogs:        logs,
		Tx:              tx,
		Minter:          minter,
		Uploader:        uploader,
		Mirror:          mirror,
		FreshnessWindow: freshness,
		Now:             time.Now,
	}
}

// MintInput describes one issuance request.
type MintInput struct {
	AvatarID    string `json:"avatarId"`
	OwnerWallet string `json:"ownerWallet"`

	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"imageUri,omitempty"`

	SellerFeeBasisPoints uint16 `json:"sellerFeeBasisPoints,omitempty"`

	// ItemKey + MaxSupply gate the item's global supply. MaxSupply == 0 means
	// unlimited; ItemKey == "" means the mint is not supply-gated at all.
	ItemKey   string `json:"itemKey,omitempty"`
	MaxSupply int    `json:"maxSupply,omitempty"`

	MintType  string `json:"mintType,omitempty"` // 既定 "collectible"
	Soulbound bool   `json:"-"`
}

// MintResult is returned to the handler on success.
type MintResult struct {
	LogID     string     `json:"logId"`
	AssetID   string     `json:"assetId"`
	Signature string     `json:"signature"`
	Leaf      *ChainLeaf `json:"-"`
}

// Eligibility is the read-only answer of CheckMintEligibility.
type Eligibility struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	RemainingQuota int    `json:"remainingQuota"` // -1 = unlimited
	RemainingStock int    `json:"remainingStock"` // -1 = unlimited / not gated
}

// ExecuteMint runs the full reserve → mint → finalize sequence for a
// server-paid mint.
func (u *MintUsecase) ExecuteMint(ctx context.Context, in MintInput) (MintResult, error) {
	if in.MintType == "" {
		in.MintType = "collectible"
	}

	metadataURI, err := u.uploadMetadata(ctx, in)
	if err != nil {
		return MintResult{}, fmt.Errorf("upload metadata: %w", err)
	}

	entry, err := u.reserve(ctx, in, logdom.StatusPending, metadataURI)
	if err != nil {
		return MintResult{}, err
	}

	log.Printf("[mint] reserved logId=%s avatar=%s item=%s", entry.ID, in.AvatarID, in.ItemKey)

	// チェーン実行は DB トランザクションの外。
	res, err := u.Minter.MintCompressed(ctx, ChainMintParams{
		OwnerWallet:          in.OwnerWallet,
		Name:                 in.Name,
		Symbol:               in.Symbol,
		MetadataURI:          metadataURI,
		SellerFeeBasisPoints: in.SellerFeeBasisPoints,
		Soulbound:            in.Soulbound,
	})
	if err != nil {
		u.compensate(ctx, entry.ID, in.AvatarID, err)
		return MintResult{}, err
	}

	if err := u.MintLogs.MarkConfirmed(ctx, entry.ID, res.AssetID, res.Signature, u.Now()); err != nil {
		// チェーン上のミントは成立している。ここでクォータを返すと
		// 二重ミントを許すので補償はしない。
		log.Printf("[mint] WARN: confirm write failed logId=%s assetId=%s err=%v", entry.ID, res.AssetID, err)
		return MintResult{}, fmt.Errorf("finalize mint log: %w", err)
	}

	u.mirror(ctx, entry.ID)

	log.Printf("[mint] confirmed logId=%s assetId=%s sig=%s", entry.ID, res.AssetID, res.Signature)
	return MintResult{LogID: entry.ID, AssetID: res.AssetID, Signature: res.Signature, Leaf: res.Leaf}, nil
}

// CheckMintEligibility answers "would a mint succeed right now" without
// consuming anything. Lock-free; the authoritative check still happens at
// reservation time.
func (u *MintUsecase) CheckMintEligibility(ctx context.Context, avatarID, itemKey string, maxSupply int) (Eligibility, error) {
	wl, err := u.Whitelist.Get(ctx, avatarID)
	if errors.Is(err, wldom.ErrNotFound) {
		return Eligibility{Eligible: false, Reason: "not whitelisted"}, nil
	}
	if err != nil {
		return Eligibility{}, err
	}

	if !wl.IsActive {
		return Eligibility{Eligible: false, Reason: "whitelist entry inactive"}, nil
	}
	if !wl.CanMint() {
		return Eligibility{Eligible: false, Reason: "quota exceeded", RemainingQuota: 0}, nil
	}

	el := Eligibility{
		Eligible:       true,
		RemainingQuota: wl.Remaining(),
		RemainingStock: -1,
	}

	if itemKey != "" && maxSupply > 0 {
		n, err := u.MintLogs.CountActiveForItem(ctx, itemKey, u.FreshnessWindow)
		if err != nil {
			return Eligibility{}, err
		}
		el.RemainingStock = maxSupply - n
		if el.RemainingStock <= 0 {
			el.Eligible = false
			el.RemainingStock = 0
			el.Reason = "supply exhausted"
		}
	}
	return el, nil
}

// ============================================================
// Internal helpers (shared with UserMintUsecase)
// ============================================================

// reserve runs the atomic reservation phase: quota slot, supply check, log
// insert. Returns the created entry.
func (u *MintUsecase) reserve(ctx context.Context, in MintInput, initial logdom.Status, metadataURI string) (logdom.Entry, error) {
	var entry logdom.Entry

	err := u.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := u.Whitelist.ConsumeSlot(ctx, in.AvatarID); err != nil {
			return err
		}

		if in.ItemKey != "" && in.MaxSupply > 0 {
			n, err := u.MintLogs.CountActiveForItem(ctx, in.ItemKey, u.FreshnessWindow)
			if err != nil {
				return err
			}
			if n >= in.MaxSupply {
				return logdom.ErrSupplyExhausted
			}
		}

		e, err := logdom.NewEntry("", in.AvatarID, in.MintType, in.ItemKey, metadataURI, initial, u.Now())
		if err != nil {
			return err
		}
		e, err = u.MintLogs.Create(ctx, e)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return logdom.Entry{}, err
	}
	return entry, nil
}

// compensate reverses a reservation after a failed chain call: the log entry
// is marked failed and the quota slot goes back.
func (u *MintUsecase) compensate(ctx context.Context, logID, avatarID string, cause error) {
	if err := u.MintLogs.MarkFailed(ctx, logID, cause.Error()); err != nil {
		log.Printf("[mint] WARN: mark failed logId=%s err=%v", logID, err)
	}
	if err := u.Whitelist.ReleaseSlot(ctx, avatarID); err != nil {
		log.Printf("[mint] WARN: release slot avatar=%s err=%v", avatarID, err)
	}
	log.Printf("[mint] compensated logId=%s avatar=%s cause=%v", logID, avatarID, cause)
}

// mirror pushes the finalized entry to the ops dashboard. Best effort.
func (u *MintUsecase) mirror(ctx context.Context, logID string) {
	if u.Mirror == nil {
		return
	}
	e, err := u.MintLogs.Get(ctx, logID)
	if err != nil {
		log.Printf("[mint] WARN: mirror read logId=%s err=%v", logID, err)
		return
	}
	if err := u.Mirror.MirrorMintLog(ctx, e); err != nil {
		log.Printf("[mint] WARN: mirror write logId=%s err=%v", logID, err)
	}
}

func (u *MintUsecase) uploadMetadata(ctx context.Context, in MintInput) (string, error) {
	meta := map[string]interface{}{
		"name":   in.Name,
		"symbol": in.Symbol,
	}
	if in.Description != "" {
		meta["description"] = in.Description
	}
	if in.ImageURI != "" {
		meta["image"] = in.ImageURI
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return u.Uploader.Upload(ctx, raw, "application/json")
}
