// internal/domain/whitelist/repository_port.go
package whitelist

import "context"

// ------------------------------------------------------
// Repository Port for WhitelistEntry (whitelist_entries テーブル)
// ------------------------------------------------------
//
// Hexagonal Architecture における「出力ポート」。
// Postgres 実装は adapters/out/db 側に置き、ドメイン層からは
// このインターフェースのみを参照します。
//
// Consume / Release は必ず行ロック付きトランザクションの内側で
// 実行されます(複数インスタンス間の割当て整合性はここでしか守れない)。

type Repository interface {
	// Get returns the entry for avatarID, or ErrNotFound.
	Get(ctx context.Context, avatarID string) (Entry, error)

	// Upsert creates or updates an entry (admin action; the core only updates).
	Upsert(ctx context.Context, e Entry) error

	// ConsumeSlot locks the row FOR UPDATE, verifies isActive and remaining
	// quota, then increments mintsUsed inside the caller's transaction.
	// Fails with ErrNotWhitelisted / ErrQuotaExceeded without mutating anything.
	ConsumeSlot(ctx context.Context, avatarID string) (Entry, error)

	// ReleaseSlot decrements mintsUsed (floor 0). Compensation path after a
	// failed chain mint: a reserved slot must never stay consumed.
	ReleaseSlot(ctx context.Context, avatarID string) error
}
