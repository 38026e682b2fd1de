package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	logdom "fableforge/internal/domain/mintlog"
	sbdom "fableforge/internal/domain/soulbound"
	transferdom "fableforge/internal/domain/transfer"
	wldom "fableforge/internal/domain/whitelist"
)

// ------------------------------------------------------
// fakeTx: serializes WithinTx the way row locks serialize
// concurrent reservations, and rolls the participating
// stores back when fn fails (like a real transaction).
// ------------------------------------------------------

type txStore interface {
	snapshot() any
	restore(any)
}

type fakeTx struct {
	mu     sync.Mutex
	stores []txStore
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snaps := make([]any, len(t.stores))
	for i, s := range t.stores {
		snaps[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for i, s := range t.stores {
			s.restore(snaps[i])
		}
		return err
	}
	return nil
}

// ------------------------------------------------------
// fakeWhitelist
// ------------------------------------------------------

type fakeWhitelist struct {
	mu      sync.Mutex
	entries map[string]wldom.Entry
}

func newFakeWhitelist(entries ...wldom.Entry) *fakeWhitelist {
	f := &fakeWhitelist{entries: make(map[string]wldom.Entry)}
	for _, e := range entries {
		f.entries[e.AvatarID] = e
	}
	return f
}

func (f *fakeWhitelist) Get(_ context.Context, avatarID string) (wldom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[avatarID]
	if !ok {
		return wldom.Entry{}, wldom.ErrNotFound
	}
	return e, nil
}

func (f *fakeWhitelist) Upsert(_ context.Context, e wldom.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.AvatarID] = e
	return nil
}

func (f *fakeWhitelist) ConsumeSlot(_ context.Context, avatarID string) (wldom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[avatarID]
	if !ok || !e.IsActive {
		return wldom.Entry{}, wldom.ErrNotWhitelisted
	}
	if e.MaxMints > 0 && e.MintsUsed >= e.MaxMints {
		return wldom.Entry{}, wldom.ErrQuotaExceeded
	}
	e.MintsUsed++
	f.entries[avatarID] = e
	return e, nil
}

func (f *fakeWhitelist) ReleaseSlot(_ context.Context, avatarID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[avatarID]
	if !ok {
		return wldom.ErrNotFound
	}
	if e.MintsUsed > 0 {
		e.MintsUsed--
	}
	f.entries[avatarID] = e
	return nil
}

func (f *fakeWhitelist) used(avatarID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[avatarID].MintsUsed
}

func (f *fakeWhitelist) snapshot() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]wldom.Entry, len(f.entries))
	for k, v := range f.entries {
		cp[k] = v
	}
	return cp
}

func (f *fakeWhitelist) restore(s any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = s.(map[string]wldom.Entry)
}

// ------------------------------------------------------
// fakeMintLogs
// ------------------------------------------------------

type fakeMintLogs struct {
	mu      sync.Mutex
	entries map[string]logdom.Entry
	seq     int
	now     func() time.Time
}

func newFakeMintLogs(now func() time.Time) *fakeMintLogs {
	if now == nil {
		now = time.Now
	}
	return &fakeMintLogs{entries: make(map[string]logdom.Entry), now: now}
}

func (f *fakeMintLogs) Create(_ context.Context, e logdom.Entry) (logdom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		f.seq++
		e.ID = "log-" + strconv.Itoa(f.seq)
	}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeMintLogs) Get(_ context.Context, id string) (logdom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return logdom.Entry{}, logdom.ErrNotFound
	}
	return e, nil
}

func (f *fakeMintLogs) AdvanceToPending(_ context.Context, id, avatarID string) (logdom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return logdom.Entry{}, logdom.ErrNotFound
	}
	if e.AvatarID != avatarID {
		return logdom.Entry{}, logdom.ErrConflict
	}
	if e.Status != logdom.StatusPrepared {
		return logdom.Entry{}, logdom.ErrConflict
	}
	e.Status = logdom.StatusPending
	f.entries[id] = e
	return e, nil
}

func (f *fakeMintLogs) MarkConfirmed(_ context.Context, id, assetID, signature string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return logdom.ErrNotFound
	}
	if err := e.Confirm(assetID, signature, at); err != nil {
		return err
	}
	f.entries[id] = e
	return nil
}

func (f *fakeMintLogs) MarkFailed(_ context.Context, id, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return logdom.ErrNotFound
	}
	if err := e.Fail(note); err != nil {
		return err
	}
	f.entries[id] = e
	return nil
}

func (f *fakeMintLogs) CountActiveForItem(_ context.Context, itemKey string, freshness time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.now().Add(-freshness)
	n := 0
	for _, e := range f.entries {
		if e.ItemKey != itemKey {
			continue
		}
		switch e.Status {
		case logdom.StatusConfirmed, logdom.StatusPending:
			n++
		case logdom.StatusPrepared:
			if e.CreatedAt.After(cutoff) {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeMintLogs) ListStuck(_ context.Context, age time.Duration) ([]logdom.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.now().Add(-age)
	var out []logdom.Entry
	for _, e := range f.entries {
		if (e.Status == logdom.StatusPrepared || e.Status == logdom.StatusPending) && e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeMintLogs) snapshot() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]logdom.Entry, len(f.entries))
	for k, v := range f.entries {
		cp[k] = v
	}
	return cp
}

func (f *fakeMintLogs) restore(s any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = s.(map[string]logdom.Entry)
}

func (f *fakeMintLogs) statuses() map[logdom.Status]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[logdom.Status]int)
	for _, e := range f.entries {
		out[e.Status]++
	}
	return out
}

// ------------------------------------------------------
// fakeSoulbound
// ------------------------------------------------------

type sbKey struct{ avatarID, itemName string }
type sbCampaignKey struct{ avatarID, campaignID, itemName string }

type fakeSoulbound struct {
	mu        sync.Mutex
	items     map[sbKey]sbdom.Item
	campaigns map[sbCampaignKey]sbdom.CampaignItem

	campaignPutErr error
}

func newFakeSoulbound() *fakeSoulbound {
	return &fakeSoulbound{
		items:     make(map[sbKey]sbdom.Item),
		campaigns: make(map[sbCampaignKey]sbdom.CampaignItem),
	}
}

func (f *fakeSoulbound) Get(_ context.Context, avatarID, itemName string) (sbdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.items[sbKey{avatarID, itemName}]
	if !ok {
		return sbdom.Item{}, sbdom.ErrNotFound
	}
	return i, nil
}

func (f *fakeSoulbound) Claim(_ context.Context, item sbdom.Item) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := sbKey{item.AvatarID, item.ItemName}
	if _, exists := f.items[k]; exists {
		return false, nil
	}
	f.items[k] = item
	return true, nil
}

func (f *fakeSoulbound) Finalize(_ context.Context, avatarID, itemName, assetID, freezeSignature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := sbKey{avatarID, itemName}
	i, ok := f.items[k]
	if !ok {
		return sbdom.ErrNotFound
	}
	i.AssetID = assetID
	i.IsFrozen = true
	i.FreezeSignature = &freezeSignature
	f.items[k] = i
	return nil
}

func (f *fakeSoulbound) Delete(_ context.Context, avatarID, itemName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, sbKey{avatarID, itemName})
	return nil
}

func (f *fakeSoulbound) ListStuckReservations(_ context.Context, age time.Duration) ([]sbdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-age)
	var out []sbdom.Item
	for _, i := range f.items {
		if i.IsReserved() && i.CreatedAt.Before(cutoff) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeSoulbound) GetCampaign(_ context.Context, avatarID, campaignID, itemName string) (sbdom.CampaignItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.campaigns[sbCampaignKey{avatarID, campaignID, itemName}]
	if !ok {
		return sbdom.CampaignItem{}, sbdom.ErrNotFound
	}
	return m, nil
}

func (f *fakeSoulbound) PutCampaign(_ context.Context, m sbdom.CampaignItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.campaignPutErr != nil {
		return f.campaignPutErr
	}
	f.campaigns[sbCampaignKey{m.AvatarID, m.CampaignID, m.ItemName}] = m
	return nil
}

func (f *fakeSoulbound) item(avatarID, itemName string) (sbdom.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.items[sbKey{avatarID, itemName}]
	return i, ok
}

// ------------------------------------------------------
// Chain-side fakes
// ------------------------------------------------------

type fakeMinter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeMinter) MintCompressed(_ context.Context, _ ChainMintParams) (*ChainMintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := f.calls
	return &ChainMintResult{
		AssetID:   fmt.Sprintf("asset-%d", n),
		Signature: fmt.Sprintf("sig-%d", n),
		Leaf:      &ChainLeaf{AssetID: fmt.Sprintf("asset-%d", n), Nonce: uint64(n)},
	}, nil
}

func (f *fakeMinter) mintCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("ar://meta-%d", f.calls), nil
}

type fakeFreezer struct {
	mu       sync.Mutex
	calls    int
	failures int // fail the first N calls
}

func (f *fakeFreezer) FreezeAsset(_ context.Context, assetID, _ string, _ *ChainLeaf) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return "", ErrChainExecution
	}
	return "freeze-sig-" + assetID, nil
}

type fakeUserMintBuilder struct {
	err error
}

func (f *fakeUserMintBuilder) BuildUserMintTransaction(_ context.Context, _ ChainMintParams) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "dW5zaWduZWQ=", nil
}

type fakeUserMintSubmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeUserMintSubmitter) SubmitUserMint(_ context.Context, _ string) (*ChainMintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ChainMintResult{AssetID: "asset-user-1", Signature: "sig-user-1"}, nil
}

type fakeTransferBuilder struct {
	err error
}

func (f *fakeTransferBuilder) BuildTransferTransaction(_ context.Context, _, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "dHJhbnNmZXI=", nil
}

type fakeAssetReader struct {
	assets map[string]*ChainAsset
	err    error
}

func (f *fakeAssetReader) GetAsset(_ context.Context, assetID string) (*ChainAsset, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assets[assetID], nil
}

type fakeTxSubmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTxSubmitter) SubmitSigned(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "transfer-sig-1", nil
}

// ------------------------------------------------------
// In-memory token store (mirrors the memory adapter)
// ------------------------------------------------------

type fakeTokenStore struct {
	mu      sync.Mutex
	entries map[string]transferdom.PendingTransfer
	now     func() time.Time
}

func newFakeTokenStore(now func() time.Time) *fakeTokenStore {
	if now == nil {
		now = time.Now
	}
	return &fakeTokenStore{entries: make(map[string]transferdom.PendingTransfer), now: now}
}

func (s *fakeTokenStore) Put(_ context.Context, p transferdom.PendingTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.Token] = p
	return nil
}

func (s *fakeTokenStore) Consume(_ context.Context, token string) (transferdom.PendingTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[token]
	if !ok {
		return transferdom.PendingTransfer{}, transferdom.ErrTokenInvalid
	}
	delete(s.entries, token)
	if p.Expired(s.now()) {
		return transferdom.PendingTransfer{}, transferdom.ErrTokenInvalid
	}
	return p, nil
}

// ------------------------------------------------------
// Shared helpers
// ------------------------------------------------------

func activeEntry(avatarID string, maxMints int) wldom.Entry {
	return wldom.Entry{
		AvatarID: avatarID,
		MaxMints: maxMints,
		IsActive: true,
	}
}

func newTestMintUsecase(wl *fakeWhitelist, logs *fakeMintLogs, minter *fakeMinter, uploader *fakeUploader) *MintUsecase {
	tx := &fakeTx{stores: []txStore{wl, logs}}
	return NewMintUsecase(wl, logs, tx, minter, uploader, nil, 10*time.Minute)
}
