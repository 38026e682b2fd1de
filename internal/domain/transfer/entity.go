// internal/domain/transfer/entity.go
package transfer

import (
	"errors"
	"strings"
	"time"
)

// ------------------------------------------------------
// Entity: PendingTransfer
// ------------------------------------------------------
//
// prepareTransfer が発行する短命・単回使用のトークン。
// (assetId, owner, recipient) に束縛され、TTL を過ぎるか一度
// consume されると無効になる。永続化はせずメモリ上で保持する
// (prepare/confirm は同一インスタンスに着地する前提)。
type PendingTransfer struct {
	Token         string    `json:"token"`
	AssetID       string    `json:"assetId"`
	OwnerWallet   string    `json:"ownerWallet"`
	Recipient     string    `json:"recipient"`
	UnsignedTxB64 string    `json:"unsignedTx"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// ------------------------------------------------------
// Errors
// ------------------------------------------------------

var (
	ErrInvalidAssetID   = errors.New("transfer: invalid assetId")
	ErrInvalidOwner     = errors.New("transfer: invalid owner wallet")
	ErrInvalidRecipient = errors.New("transfer: invalid recipient wallet")

	// ErrTokenInvalid: missing, expired, or already consumed. 呼び出し元は
	// prepare からやり直す。
	ErrTokenInvalid = errors.New("transfer: token expired or invalid")

	// ErrNotTransferable: frozen (soulbound) or burnt asset.
	ErrNotTransferable = errors.New("transfer: asset is not transferable")

	// ErrOwnerMismatch: on-ledger owner differs from the requester.
	ErrOwnerMismatch = errors.New("transfer: owner mismatch")
)

// ------------------------------------------------------
// Constructors
// ------------------------------------------------------

func NewPendingTransfer(token, assetID, owner, recipient, unsignedTxB64 string, expiresAt time.Time) (PendingTransfer, error) {
	a := strings.TrimSpace(assetID)
	if a == "" {
		return PendingTransfer{}, ErrInvalidAssetID
	}
	o := strings.TrimSpace(owner)
	if o == "" {
		return PendingTransfer{}, ErrInvalidOwner
	}
	r := strings.TrimSpace(recipient)
	if r == "" {
		return PendingTransfer{}, ErrInvalidRecipient
	}

	return PendingTransfer{
		Token:         strings.TrimSpace(token),
		AssetID:       a,
		OwnerWallet:   o,
		Recipient:     r,
		UnsignedTxB64: unsignedTxB64,
		ExpiresAt:     expiresAt.UTC(),
	}, nil
}

// Expired reports whether the token is past its TTL at now.
func (p PendingTransfer) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
