// internal/application/usecase/ports.go
package usecase

import (
	"context"
	"time"

	"fableforge/internal/domain/mintlog"
	"fableforge/internal/domain/soulbound"
)

// ============================================================
// Ledger-facing ports
// ============================================================
//
// usecase 層から見た外部レジャーの入出力ポート。実装は infra/solana。
// いずれも DB トランザクションの外側で呼ばれる(遅い I/O をロック越しに
// 持ち込まない)。

// ChainMintParams describes one compressed-asset mint.
type ChainMintParams struct {
	OwnerWallet          string
	Name                 string
	Symbol               string
	MetadataURI          string
	SellerFeeBasisPoints uint16

	// Soulbound mints delegate the leaf to the issuing authority so the
	// freeze coordinator can lock it afterwards.
	Soulbound bool
}

// ChainLeaf is the leaf data emitted by the mint transaction itself.
// Authoritative and immediately available, unlike the DAS index which may
// lag behind a very recent mint.
type ChainLeaf struct {
	AssetID     string
	Owner       string
	Delegate    string
	Tree        string
	Nonce       uint64
	LeafIndex   uint32
	DataHash    [32]byte
	CreatorHash [32]byte
}

// ChainMintResult is the outcome of a confirmed mint.
type ChainMintResult struct {
	AssetID   string
	Signature string
	Leaf      *ChainLeaf
}

// ChainAsset is the on-ledger view of an asset (DAS index).
type ChainAsset struct {
	ID         string
	Owner      string
	Frozen     bool
	Burnt      bool
	Compressed bool
}

// LedgerMintPort submits a mint instruction signed by the issuing authority,
// polls until the emitted asset identifier is queryable, and returns it.
type LedgerMintPort interface {
	MintCompressed(ctx context.Context, p ChainMintParams) (*ChainMintResult, error)
}

// UserMintBuildPort builds an unsigned mint transaction with the caller as
// fee payer, pre-signed by the issuing authority (required co-signer).
type UserMintBuildPort interface {
	BuildUserMintTransaction(ctx context.Context, p ChainMintParams) (unsignedTxB64 string, err error)
}

// UserMintSubmitPort submits the counter-signed transaction, polls for
// confirmation, and parses the resulting asset id.
type UserMintSubmitPort interface {
	SubmitUserMint(ctx context.Context, signedTxB64 string) (*ChainMintResult, error)
}

// FreezePort locks an asset soulbound. leaf may be nil, in which case the
// implementation falls back to the (possibly stale) index.
type FreezePort interface {
	FreezeAsset(ctx context.Context, assetID, ownerWallet string, leaf *ChainLeaf) (signature string, err error)
}

// AssetReadPort fetches the current on-ledger asset record.
// Returns (nil, nil) while the index has not caught up.
type AssetReadPort interface {
	GetAsset(ctx context.Context, assetID string) (*ChainAsset, error)
}

// TransferBuildPort validates on-ledger state and builds a transfer
// transaction for the owner to counter-sign.
type TransferBuildPort interface {
	BuildTransferTransaction(ctx context.Context, assetID, ownerWallet, recipient string) (unsignedTxB64 string, err error)
}

// TxSubmitPort submits a fully-signed transaction and polls its status.
type TxSubmitPort interface {
	SubmitSigned(ctx context.Context, signedTxB64 string) (signature string, err error)
}

// ============================================================
// Metadata upload port
// ============================================================

// MetadataUploader stores off-chain asset content and returns a content URI.
// Re-upload on retry is harmless (treated as idempotent).
type MetadataUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (uri string, err error)
}

// ============================================================
// Transaction runner
// ============================================================

// TxRunner executes fn inside one database transaction. Repositories pick the
// transaction up from ctx (sqlutil.CtxWithTx). Reservation phases must stay
// short: no ledger I/O inside fn.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ============================================================
// Operational ports
// ============================================================

// OpsMirrorPort feeds the ops dashboard (Firestore).
type OpsMirrorPort interface {
	MirrorMintLog(ctx context.Context, e mintlog.Entry) error
	MirrorStuckReport(ctx context.Context, r StuckReport) error
}

// OpsMailerPort notifies operators.
type OpsMailerPort interface {
	SendStuckReport(ctx context.Context, r StuckReport) error
}

// StuckReport is the outcome of one stuck-items scan.
type StuckReport struct {
	GeneratedAt       time.Time        `json:"generatedAt"`
	OlderThan         time.Duration    `json:"olderThan"`
	StuckLogs         []mintlog.Entry  `json:"stuckLogs"`
	StuckReservations []soulbound.Item `json:"stuckReservations"`
}
