// internal/domain/transfer/store_port.go
package transfer

import "context"

// ------------------------------------------------------
// TokenStore Port
// ------------------------------------------------------
//
// プロセス内 map で足りる規模だが、グローバル可変状態を避けるため
// 明示的に注入されるストアとして切り出す。水平スケールが必要になったら
// 共有キャッシュ実装に差し替える。

type TokenStore interface {
	// Put stores the pending transfer under its token.
	Put(ctx context.Context, p PendingTransfer) error

	// Consume atomically removes and returns the entry for token.
	// Missing, expired, or already-consumed tokens yield ErrTokenInvalid;
	// removal happens before any chain submission so a token can never be
	// replayed.
	Consume(ctx context.Context, token string) (PendingTransfer, error)
}
