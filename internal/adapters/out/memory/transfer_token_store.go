// internal/adapters/out/memory/transfer_token_store.go
package memory

import (
	"context"
	"log"
	"sync"
	"time"

	transferdom "fableforge/internal/domain/transfer"
)

// TransferTokenStore holds pending transfers in process memory.
// prepare/confirm ペアは同一インスタンスに着地する前提(水平スケールするなら
// 共有キャッシュ実装に差し替える)。グローバル変数ではなく注入して使う。
type TransferTokenStore struct {
	mu      sync.Mutex
	entries map[string]transferdom.PendingTransfer

	// now is injectable for deterministic tests.
	now func() time.Time
}

var _ transferdom.TokenStore = (*TransferTokenStore)(nil)

func NewTransferTokenStore(now func() time.Time) *TransferTokenStore {
	if now == nil {
		now = time.Now
	}
	return &TransferTokenStore{
		entries: make(map[string]transferdom.PendingTransfer),
		now:     now,
	}
}

// Put implements transfer.TokenStore.
func (s *TransferTokenStore) Put(_ context.Context, p transferdom.PendingTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.Token] = p
	return nil
}

// Consume implements transfer.TokenStore: atomically remove-and-return, so a
// token can be spent exactly once. Expired entries behave as missing.
func (s *TransferTokenStore) Consume(_ context.Context, token string) (transferdom.PendingTransfer, error) {
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

// Sweep drops expired entries and returns how many were removed.
func (s *TransferTokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, p := range s.entries {
		if p.Expired(now) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count (for tests and ops logging).
func (s *TransferTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper purges expired tokens every interval until ctx is done.
func (s *TransferTokenStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("[transfer-store] swept %d expired tokens", n)
				}
			}
		}
	}()
}
