// internal/application/usecase/soulbound_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	sbdom "fableforge/internal/domain/soulbound"
)

// ============================================================
// SoulboundUsecase: mint → freeze の合成 + 多層 dedup
// ============================================================
//
// (avatarId, itemName) につき 1 回だけミントする。重複防止は
//  1. キャンペーン対応表
//  2. グローバル実体 (既存なら採用のみ)
//  3. INSERT ... ON CONFLICT DO NOTHING によるプレースホルダ claim
// の三層。claim 後に失敗したら行を消してリトライ可能に戻す。

type SoulboundUsecase struct {
	Items sbdom.Repository
	Mint  *MintUsecase
	Freez FreezePort

	Now func() time.Time
}

func NewSoulboundUsecase(items sbdom.Repository, mint *MintUsecase, freezer FreezePort) *SoulboundUsecase {
	return &SoulboundUsecase{Items: items, Mint: mint, Freez: freezer, Now: time.Now}
}

// SoulboundMintInput identifies the item and carries the mint content.
type SoulboundMintInput struct {
	AvatarID    string `json:"avatarId"`
	OwnerWallet string `json:"ownerWallet"`
	ItemName    string `json:"itemName"`
	CampaignID  string `json:"campaignId,omitempty"`

	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"imageUri,omitempty"`
}

// SoulboundMintResult reports the (possibly pre-existing) asset.
type SoulboundMintResult struct {
	AssetID         string  `json:"assetId"`
	FreezeSignature *string `json:"freezeSignature,omitempty"`
	AlreadyMinted   bool    `json:"alreadyMinted"`
}

// MintAndFreezeSoulbound issues the item once per (avatarId, itemName),
// freezes it, and maps it into the campaign when one is given.
func (u *SoulboundUsecase) MintAndFreezeSoulbound(ctx context.Context, in SoulboundMintInput) (SoulboundMintResult, error) {
	// 1. キャンペーン対応表に既にあればそれを返す。
	if in.CampaignID != "" {
		m, err := u.Items.GetCampaign(ctx, in.AvatarID, in.CampaignID, in.ItemName)
		if err == nil {
			log.Printf("[soulbound] campaign mapping hit avatar=%s campaign=%s item=%s", in.AvatarID, in.CampaignID, in.ItemName)
			return SoulboundMintResult{AssetID: m.AssetID, AlreadyMinted: true}, nil
		}
		if !errors.Is(err, sbdom.ErrNotFound) {
			return SoulboundMintResult{}, err
		}
	}

	// 2. グローバル実体があれば採用のみ(再ミントしない)。
	existing, err := u.Items.Get(ctx, in.AvatarID, in.ItemName)
	if err == nil {
		return u.adoptExisting(ctx, in, existing)
	}
	if !errors.Is(err, sbdom.ErrNotFound) {
		return SoulboundMintResult{}, err
	}

	// 3. プレースホルダで (avatarId, itemName) を claim。
	reserved, err := sbdom.NewReservedItem(in.AvatarID, in.ItemName, u.Now())
	if err != nil {
		return SoulboundMintResult{}, err
	}
	claimed, err := u.Items.Claim(ctx, reserved)
	if err != nil {
		return SoulboundMintResult{}, err
	}
	if !claimed {
		// 同時リクエストが先に claim 済み。勝者の行を読み直して返す。
		winner, err := u.Items.Get(ctx, in.AvatarID, in.ItemName)
		if err != nil {
			return SoulboundMintResult{}, err
		}
		log.Printf("[soulbound] lost claim avatar=%s item=%s", in.AvatarID, in.ItemName)
		return SoulboundMintResult{AssetID: winner.AssetID, FreezeSignature: winner.FreezeSignature, AlreadyMinted: true}, nil
	}

	// 4. claim 成功: mint → freeze → 確定。
	res, err := u.mintAndFreeze(ctx, in)
	if err != nil {
		// 5. claim 後の失敗はプレースホルダを消してリトライ可能に戻す。
		if delErr := u.Items.Delete(ctx, in.AvatarID, in.ItemName); delErr != nil {
			log.Printf("[soulbound] WARN: placeholder delete avatar=%s item=%s err=%v", in.AvatarID, in.ItemName, delErr)
		}
		return SoulboundMintResult{}, err
	}

	if err := u.Items.Finalize(ctx, in.AvatarID, in.ItemName, res.AssetID, *res.FreezeSignature); err != nil {
		log.Printf("[soulbound] WARN: finalize avatar=%s item=%s assetId=%s err=%v", in.AvatarID, in.ItemName, res.AssetID, err)
		return SoulboundMintResult{}, fmt.Errorf("finalize soulbound item: %w", err)
	}

	if in.CampaignID != "" {
		if err := u.putCampaignMapping(ctx, in, res.AssetID); err != nil {
			// 実体は確定済み。対応表だけ欠けた状態は次回呼び出しの採用経路で埋まる。
			log.Printf("[soulbound] WARN: campaign mapping avatar=%s campaign=%s err=%v", in.AvatarID, in.CampaignID, err)
		}
	}

	log.Printf("[soulbound] minted+frozen avatar=%s item=%s assetId=%s", in.AvatarID, in.ItemName, res.AssetID)
	return res, nil
}

// MintAndFreezeSoulboundAsync kicks the composed operation off detached from
// the request. The caller polls the mint log / soulbound record for outcome.
func (u *SoulboundUsecase) MintAndFreezeSoulboundAsync(ctx context.Context, in SoulboundMintInput) {
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, 5*time.Minute)
		defer cancel()
		if _, err := u.MintAndFreezeSoulbound(ctx, in); err != nil {
			log.Printf("[soulbound] background mint failed avatar=%s item=%s err=%v", in.AvatarID, in.ItemName, err)
		}
	}()
}

// CheckSoulboundExists reports whether the item (optionally campaign-scoped)
// is already issued.
func (u *SoulboundUsecase) CheckSoulboundExists(ctx context.Context, avatarID, itemName, campaignID string) (bool, *sbdom.Item, error) {
	if campaignID != "" {
		if _, err := u.Items.GetCampaign(ctx, avatarID, campaignID, itemName); err == nil {
			i, err := u.Items.Get(ctx, avatarID, itemName)
			if err != nil {
				return true, nil, nil
			}
			return true, &i, nil
		} else if !errors.Is(err, sbdom.ErrNotFound) {
			return false, nil, err
		}
		return false, nil, nil
	}

	i, err := u.Items.Get(ctx, avatarID, itemName)
	if errors.Is(err, sbdom.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, &i, nil
}

// ------------------------------------------------------
// Internal
// ------------------------------------------------------

// adoptExisting maps an already-issued global asset into the campaign without
// re-minting. A still-reserved placeholder means another request is mid-mint.
func (u *SoulboundUsecase) adoptExisting(ctx context.Context, in SoulboundMintInput, existing sbdom.Item) (SoulboundMintResult, error) {
	if existing.IsReserved() {
		log.Printf("[soulbound] claim in flight avatar=%s item=%s", in.AvatarID, in.ItemName)
		return SoulboundMintResult{AssetID: existing.AssetID, AlreadyMinted: true}, nil
	}

	if in.CampaignID != "" {
		if err := u.putCampaignMapping(ctx, in, existing.AssetID); err != nil {
			return SoulboundMintResult{}, err
		}
		log.Printf("[soulbound] adopted avatar=%s campaign=%s item=%s assetId=%s", in.AvatarID, in.CampaignID, in.ItemName, existing.AssetID)
	}
	return SoulboundMintResult{AssetID: existing.AssetID, FreezeSignature: existing.FreezeSignature, AlreadyMinted: true}, nil
}

func (u *SoulboundUsecase) mintAndFreeze(ctx context.Context, in SoulboundMintInput) (SoulboundMintResult, error) {
	mres, err := u.Mint.ExecuteMint(ctx, MintInput{
		AvatarID:    in.AvatarID,
		OwnerWallet: in.OwnerWallet,
		Name:        in.Name,
		Symbol:      in.Symbol,
		Description: in.Description,
		ImageURI:    in.ImageURI,
		MintType:    "soulbound",
		Soulbound:   true,
	})
	if err != nil {
		return SoulboundMintResult{}, err
	}

	sig, err := u.Freez.FreezeAsset(ctx, mres.AssetID, in.OwnerWallet, mres.Leaf)
	if err != nil {
		return SoulboundMintResult{}, err
	}

	return SoulboundMintResult{AssetID: mres.AssetID, FreezeSignature: &sig}, nil
}

func (u *SoulboundUsecase) putCampaignMapping(ctx context.Context, in SoulboundMintInput, assetID string) error {
	return u.Items.PutCampaign(ctx, sbdom.CampaignItem{
		AvatarID:   in.AvatarID,
		CampaignID: in.CampaignID,
		ItemName:   in.ItemName,
		AssetID:    assetID,
		CreatedAt:  u.Now().UTC(),
	})
}
