// internal/application/usecase/transfer_usecase.go
package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	transferdom "fableforge/internal/domain/transfer"
)

// ============================================================
// TransferUsecase: 単回使用トークンで守る二段階トランスファー
// ============================================================

type TransferUsecase struct {
	Builder   TransferBuildPort
	Submitter TxSubmitPort
	Reader    AssetReadPort
	Tokens    transferdom.TokenStore

	TTL time.Duration
	Now func() time.Time

	// newToken is injectable for deterministic tests.
	newToken func() string
}

func NewTransferUsecase(builder TransferBuildPort, submitter TxSubmitPort, reader AssetReadPort, tokens transferdom.TokenStore, ttl time.Duration) *TransferUsecase {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TransferUsecase{
		Builder:   builder,
		Submitter: submitter,
		Reader:    reader,
		Tokens:    tokens,
		TTL:       ttl,
		Now:       time.Now,
		newToken:  uuid.NewString,
	}
}

// PreparedTransfer is handed to the owner for counter-signing.
type PreparedTransfer struct {
	Token         string    `json:"transferToken"`
	UnsignedTxB64 string    `json:"unsignedTx"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// PrepareTransfer validates on-ledger ownership/transferability, builds the
// transfer transaction, and issues a short-lived single-use token bound to
// (assetId, owner, recipient).
func (u *TransferUsecase) PrepareTransfer(ctx context.Context, assetID, ownerWallet, recipient string) (PreparedTransfer, error) {
	unsigned, err := u.Builder.BuildTransferTransaction(ctx, assetID, ownerWallet, recipient)
	if err != nil {
		return PreparedTransfer{}, err
	}

	p, err := transferdom.NewPendingTransfer(
		u.newToken(), assetID, ownerWallet, recipient, unsigned, u.Now().Add(u.TTL),
	)
	if err != nil {
		return PreparedTransfer{}, err
	}

	if err := u.Tokens.Put(ctx, p); err != nil {
		return PreparedTransfer{}, fmt.Errorf("store transfer token: %w", err)
	}

	log.Printf("[transfer] prepared assetId=%s owner=%s recipient=%s expires=%s",
		assetID, ownerWallet, recipient, p.ExpiresAt.Format(time.RFC3339))
	return PreparedTransfer{Token: p.Token, UnsignedTxB64: unsigned, ExpiresAt: p.ExpiresAt}, nil
}

// AssetStatus reads the current on-ledger record for an asset. Returns
// (nil, nil) while the index has not caught up with a very recent mint;
// the handler maps that to 404.
func (u *TransferUsecase) AssetStatus(ctx context.Context, assetID string) (*ChainAsset, error) {
	if assetID == "" {
		return nil, fmt.Errorf("transfer: asset id is empty")
	}
	return u.Reader.GetAsset(ctx, assetID)
}

// ConfirmTransfer consumes the token (replay-safe: the store removes it
// atomically) and submits the owner-signed transaction.
func (u *TransferUsecase) ConfirmTransfer(ctx context.Context, token, signedTxB64 string) (string, error) {
	p, err := u.Tokens.Consume(ctx, token)
	if err != nil {
		return "", err
	}

	sig, err := u.Submitter.SubmitSigned(ctx, signedTxB64)
	if err != nil {
		// トークンは消費済み。呼び出し元は prepare からやり直す。
		return "", err
	}

	log.Printf("[transfer] confirmed assetId=%s recipient=%s sig=%s", p.AssetID, p.Recipient, sig)
	return sig, nil
}
