package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	logdom "fableforge/internal/domain/mintlog"
)

func newTestUserMintUsecase(wl *fakeWhitelist, logs *fakeMintLogs, builder *fakeUserMintBuilder, submitter *fakeUserMintSubmitter) *UserMintUsecase {
	mint := newTestMintUsecase(wl, logs, &fakeMinter{}, &fakeUploader{})
	return NewUserMintUsecase(mint, builder, submitter)
}

func TestPrepareMintTransaction(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, &fakeUserMintSubmitter{})

	prep, err := u.PrepareMintTransaction(context.Background(), MintInput{
		AvatarID: "avatar-1", OwnerWallet: "wallet-1", Name: "Sword",
	})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}
	if prep.UnsignedTxB64 == "" || prep.MetadataURI == "" {
		t.Fatalf("unexpected prepared mint: %+v", prep)
	}

	e, err := logs.Get(context.Background(), prep.LogID)
	if err != nil {
		t.Fatalf("Get log: %v", err)
	}
	if e.Status != logdom.StatusPrepared {
		t.Fatalf("log status = %s, want %s", e.Status, logdom.StatusPrepared)
	}
	if e.MintType != "userPaid" {
		t.Fatalf("mintType = %q, want %q", e.MintType, "userPaid")
	}
	if wl.used("avatar-1") != 1 {
		t.Fatalf("mintsUsed = %d, want 1", wl.used("avatar-1"))
	}
}

func TestPrepareMintTransactionBuildFailureCompensates(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	builder := &fakeUserMintBuilder{err: errors.New("blockhash fetch failed")}
	u := newTestUserMintUsecase(wl, logs, builder, &fakeUserMintSubmitter{})

	if _, err := u.PrepareMintTransaction(context.Background(), MintInput{
		AvatarID: "avatar-1", OwnerWallet: "w", Name: "x",
	}); err == nil {
		t.Fatal("expected error")
	}
	if wl.used("avatar-1") != 0 {
		t.Fatalf("mintsUsed = %d, want 0 after compensation", wl.used("avatar-1"))
	}
	if got := logs.statuses()[logdom.StatusFailed]; got != 1 {
		t.Fatalf("failed logs = %d, want 1", got)
	}
}

func TestConfirmUserMint(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, &fakeUserMintSubmitter{})
	ctx := context.Background()

	prep, err := u.PrepareMintTransaction(ctx, MintInput{AvatarID: "avatar-1", OwnerWallet: "w", Name: "x"})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}

	res, err := u.ConfirmUserMint(ctx, prep.LogID, "avatar-1", "c2lnbmVk")
	if err != nil {
		t.Fatalf("ConfirmUserMint: %v", err)
	}
	if res.AssetID != "asset-user-1" {
		t.Fatalf("assetID = %q, want %q", res.AssetID, "asset-user-1")
	}

	e, _ := logs.Get(ctx, prep.LogID)
	if e.Status != logdom.StatusConfirmed {
		t.Fatalf("log status = %s, want %s", e.Status, logdom.StatusConfirmed)
	}
}

func TestConfirmUserMintOnce(t *testing.T) {
	// 同じ prepared エントリに対する 2 並行 confirm は 1 つだけ勝つ。
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	submitter := &fakeUserMintSubmitter{}
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, submitter)
	ctx := context.Background()

	prep, err := u.PrepareMintTransaction(ctx, MintInput{AvatarID: "avatar-1", OwnerWallet: "w", Name: "x"})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = u.ConfirmUserMint(ctx, prep.LogID, "avatar-1", "c2lnbmVk")
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, logdom.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and 1", successes, conflicts)
	}
}

func TestConfirmUserMintWrongAvatar(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, &fakeUserMintSubmitter{})
	ctx := context.Background()

	prep, err := u.PrepareMintTransaction(ctx, MintInput{AvatarID: "avatar-1", OwnerWallet: "w", Name: "x"})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}

	if _, err := u.ConfirmUserMint(ctx, prep.LogID, "avatar-2", "c2lnbmVk"); !errors.Is(err, logdom.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestConfirmUserMintIndexingTimeoutLeavesPending(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	submitter := &fakeUserMintSubmitter{err: ErrIndexingTimeout}
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, submitter)
	ctx := context.Background()

	prep, err := u.PrepareMintTransaction(ctx, MintInput{AvatarID: "avatar-1", OwnerWallet: "w", Name: "x"})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}

	if _, err := u.ConfirmUserMint(ctx, prep.LogID, "avatar-1", "c2lnbmVk"); !errors.Is(err, ErrIndexingTimeout) {
		t.Fatalf("err = %v, want ErrIndexingTimeout", err)
	}

	// トランザクションは載っている可能性があるので failed に倒さない。
	e, _ := logs.Get(ctx, prep.LogID)
	if e.Status != logdom.StatusPending {
		t.Fatalf("log status = %s, want %s", e.Status, logdom.StatusPending)
	}
	if wl.used("avatar-1") != 1 {
		t.Fatalf("mintsUsed = %d, want 1 (slot stays consumed)", wl.used("avatar-1"))
	}
}

func TestConfirmUserMintSubmitFailureCompensates(t *testing.T) {
	wl := newFakeWhitelist(activeEntry("avatar-1", 3))
	logs := newFakeMintLogs(nil)
	submitter := &fakeUserMintSubmitter{err: ErrChainExecution}
	u := newTestUserMintUsecase(wl, logs, &fakeUserMintBuilder{}, submitter)
	ctx := context.Background()

	prep, err := u.PrepareMintTransaction(ctx, MintInput{AvatarID: "avatar-1", OwnerWallet: "w", Name: "x"})
	if err != nil {
		t.Fatalf("PrepareMintTransaction: %v", err)
	}

	if _, err := u.ConfirmUserMint(ctx, prep.LogID, "avatar-1", "c2lnbmVk"); !errors.Is(err, ErrChainExecution) {
		t.Fatalf("err = %v, want ErrChainExecution", err)
	}

	e, _ := logs.Get(ctx, prep.LogID)
	if e.Status != logdom.StatusFailed {
		t.Fatalf("log status = %s, want %s", e.Status, logdom.StatusFailed)
	}
	if wl.used("avatar-1") != 0 {
		t.Fatalf("mintsUsed = %d, want 0 after compensation", wl.used("avatar-1"))
	}
}
