package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestSoulboundUsecase(items *fakeSoulbound, wl *fakeWhitelist, logs *fakeMintLogs, minter *fakeMinter, freezer *fakeFreezer) *SoulboundUsecase {
	mint := newTestMintUsecase(wl, logs, minter, &fakeUploader{})
	return NewSoulboundUsecase(items, mint, freezer)
}

func soulboundInput(avatarID, itemName, campaignID string) SoulboundMintInput {
	return SoulboundMintInput{
		AvatarID:    avatarID,
		OwnerWallet: "wallet-" + avatarID,
		ItemName:    itemName,
		CampaignID:  campaignID,
		Name:        itemName,
		Symbol:      "FABLE",
	}
}

func TestMintAndFreezeSoulbound(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	minter := &fakeMinter{}
	freezer := &fakeFreezer{}
	u := newTestSoulboundUsecase(items, wl, logs, minter, freezer)

	res, err := u.MintAndFreezeSoulbound(context.Background(), soulboundInput("avatar-1", "founder-badge", ""))
	if err != nil {
		t.Fatalf("MintAndFreezeSoulbound: %v", err)
	}
	if res.AlreadyMinted {
		t.Fatal("fresh mint reported alreadyMinted")
	}
	if res.AssetID != "asset-1" || res.FreezeSignature == nil {
		t.Fatalf("unexpected result: %+v", res)
	}

	i, ok := items.item("avatar-1", "founder-badge")
	if !ok {
		t.Fatal("soulbound record missing")
	}
	if i.IsReserved() || !i.IsFrozen || i.AssetID != "asset-1" {
		t.Fatalf("unexpected record: %+v", i)
	}
}

func TestMintAndFreezeSoulboundIdempotent(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	minter := &fakeMinter{}
	freezer := &fakeFreezer{}
	u := newTestSoulboundUsecase(items, wl, logs, minter, freezer)
	ctx := context.Background()

	first, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", ""))
	if err != nil {
		t.Fatalf("first mint: %v", err)
	}

	second, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", ""))
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if !second.AlreadyMinted {
		t.Fatal("second call not reported alreadyMinted")
	}
	if second.AssetID != first.AssetID {
		t.Fatalf("assetID = %q, want %q", second.AssetID, first.AssetID)
	}
	if minter.mintCalls() != 1 {
		t.Fatalf("chain mints = %d, want 1", minter.mintCalls())
	}
	if wl.used("avatar-1") != 1 {
		t.Fatalf("mintsUsed = %d, want 1", wl.used("avatar-1"))
	}
}

func TestMintAndFreezeSoulboundConcurrent(t *testing.T) {
	// 同一 (avatarId, itemName) への 5 並行リクエストでもミントは 1 回。
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	minter := &fakeMinter{}
	u := newTestSoulboundUsecase(items, wl, logs, minter, &fakeFreezer{})

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = u.MintAndFreezeSoulbound(context.Background(), soulboundInput("avatar-1", "founder-badge", ""))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if minter.mintCalls() != 1 {
		t.Fatalf("chain mints = %d, want 1", minter.mintCalls())
	}
}

func TestMintAndFreezeSoulboundFreezeFailureRetries(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	minter := &fakeMinter{}
	freezer := &fakeFreezer{failures: 1}
	u := newTestSoulboundUsecase(items, wl, logs, minter, freezer)
	ctx := context.Background()

	// freeze が失敗した試行はプレースホルダを残さない。
	if _, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "")); err == nil {
		t.Fatal("expected freeze failure")
	}
	if _, ok := items.item("avatar-1", "founder-badge"); ok {
		t.Fatal("placeholder left behind after failed attempt")
	}

	// リトライはまっさらな状態から成功する。
	res, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", ""))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.AlreadyMinted {
		t.Fatal("retry reported alreadyMinted")
	}
	if res.FreezeSignature == nil {
		t.Fatal("retry missing freeze signature")
	}
}

func TestMintAndFreezeSoulboundCampaignMapping(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	minter := &fakeMinter{}
	u := newTestSoulboundUsecase(items, wl, logs, minter, &fakeFreezer{})
	ctx := context.Background()

	// campaign-a でミント。
	first, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-a"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// campaign-b は既存実体を採用するだけで再ミントしない。
	second, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-b"))
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if !second.AlreadyMinted || second.AssetID != first.AssetID {
		t.Fatalf("unexpected adopt result: %+v", second)
	}
	if minter.mintCalls() != 1 {
		t.Fatalf("chain mints = %d, want 1", minter.mintCalls())
	}

	// campaign-a の再呼び出しは対応表ヒットで即返る。
	third, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-a"))
	if err != nil {
		t.Fatalf("campaign hit: %v", err)
	}
	if !third.AlreadyMinted || third.AssetID != first.AssetID {
		t.Fatalf("unexpected campaign hit result: %+v", third)
	}
}

func TestMintAndFreezeSoulboundCampaignMappingHealsOnRetry(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	u := newTestSoulboundUsecase(items, wl, logs, &fakeMinter{}, &fakeFreezer{})
	ctx := context.Background()

	// 対応表書き込みだけ失敗させる。実体は確定する。
	items.campaignPutErr = errors.New("firestore unavailable")
	res, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-a"))
	if err != nil {
		t.Fatalf("mint with mapping failure: %v", err)
	}
	if _, err := items.GetCampaign(ctx, "avatar-1", "campaign-a", "founder-badge"); err == nil {
		t.Fatal("mapping unexpectedly present")
	}

	// 次の呼び出しは採用経路で対応表を埋める。
	items.campaignPutErr = nil
	res2, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-a"))
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if !res2.AlreadyMinted || res2.AssetID != res.AssetID {
		t.Fatalf("unexpected heal result: %+v", res2)
	}
	if _, err := items.GetCampaign(ctx, "avatar-1", "campaign-a", "founder-badge"); err != nil {
		t.Fatalf("mapping still missing: %v", err)
	}
}

func TestCheckSoulboundExists(t *testing.T) {
	items := newFakeSoulbound()
	wl := newFakeWhitelist(activeEntry("avatar-1", 0))
	logs := newFakeMintLogs(nil)
	u := newTestSoulboundUsecase(items, wl, logs, &fakeMinter{}, &fakeFreezer{})
	ctx := context.Background()

	exists, _, err := u.CheckSoulboundExists(ctx, "avatar-1", "founder-badge", "")
	if err != nil {
		t.Fatalf("CheckSoulboundExists: %v", err)
	}
	if exists {
		t.Fatal("exists before mint")
	}

	if _, err := u.MintAndFreezeSoulbound(ctx, soulboundInput("avatar-1", "founder-badge", "campaign-a")); err != nil {
		t.Fatalf("mint: %v", err)
	}

	exists, item, err := u.CheckSoulboundExists(ctx, "avatar-1", "founder-badge", "")
	if err != nil {
		t.Fatalf("CheckSoulboundExists: %v", err)
	}
	if !exists || item == nil || !item.IsFrozen {
		t.Fatalf("unexpected result: exists=%v item=%+v", exists, item)
	}

	exists, _, err = u.CheckSoulboundExists(ctx, "avatar-1", "founder-badge", "campaign-a")
	if err != nil {
		t.Fatalf("CheckSoulboundExists campaign: %v", err)
	}
	if !exists {
		t.Fatal("campaign-scoped check missed the mapping")
	}

	exists, _, err = u.CheckSoulboundExists(ctx, "avatar-1", "founder-badge", "campaign-other")
	if err != nil {
		t.Fatalf("CheckSoulboundExists other campaign: %v", err)
	}
	if exists {
		t.Fatal("unmapped campaign reported exists")
	}
}
