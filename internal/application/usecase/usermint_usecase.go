// internal/application/usecase/usermint_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	logdom "fableforge/internal/domain/mintlog"
)

// ============================================================
// UserMintUsecase: 二段階(ユーザー手数料負担)ミント
// ============================================================
//
// prepare で発行者が部分署名した未署名トランザクションを返し、ユーザーが
// 署名して confirm で持ち込む。confirm-once は mint_logs の行ロックで守る。

type UserMintUsecase struct {
	Mint *MintUsecase // 予約・補償ロジックを共有する

	Builder   UserMintBuildPort
	Submitter UserMintSubmitPort
}

func NewUserMintUsecase(mint *MintUsecase, builder UserMintBuildPort, submitter UserMintSubmitPort) *UserMintUsecase {
	return &UserMintUsecase{Mint: mint, Builder: builder, Submitter: submitter}
}

// PreparedMint is what the caller needs to counter-sign.
type PreparedMint struct {
	LogID         string `json:"logId"`
	UnsignedTxB64 string `json:"unsignedTx"`
	MetadataURI   string `json:"metadataUri"`
}

// PrepareMintTransaction reserves quota/supply, records a prepared log entry,
// and returns the authority-pre-signed transaction for the user to sign.
func (u *UserMintUsecase) PrepareMintTransaction(ctx context.Context, in MintInput) (PreparedMint, error) {
	if in.MintType == "" {
		in.MintType = "userPaid"
	}

	metadataURI, err := u.Mint.uploadMetadata(ctx, in)
	if err != nil {
		return PreparedMint{}, fmt.Errorf("upload metadata: %w", err)
	}

	entry, err := u.Mint.reserve(ctx, in, logdom.StatusPrepared, metadataURI)
	if err != nil {
		return PreparedMint{}, err
	}

	unsigned, err := u.Builder.BuildUserMintTransaction(ctx, ChainMintParams{
		OwnerWallet:          in.OwnerWallet,
		Name:                 in.Name,
		Symbol:               in.Symbol,
		MetadataURI:          metadataURI,
		SellerFeeBasisPoints: in.SellerFeeBasisPoints,
		Soulbound:            in.Soulbound,
	})
	if err != nil {
		// チェーンには何も載っていないので予約を巻き戻すだけでよい。
		u.Mint.compensate(ctx, entry.ID, in.AvatarID, err)
		return PreparedMint{}, fmt.Errorf("build user mint tx: %w", err)
	}

	log.Printf("[usermint] prepared logId=%s avatar=%s", entry.ID, in.AvatarID)
	return PreparedMint{LogID: entry.ID, UnsignedTxB64: unsigned, MetadataURI: metadataURI}, nil
}

// ConfirmUserMint re-validates ownership and status under a row lock, flips
// the entry to pending so concurrent confirms lose with ErrConflict, then
// submits the fully-signed transaction and finalizes.
func (u *UserMintUsecase) ConfirmUserMint(ctx context.Context, logID, avatarID, signedTxB64 string) (MintResult, error) {
	var entry logdom.Entry
	err := u.Mint.Tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := u.Mint.MintLogs.AdvanceToPending(ctx, logID, avatarID)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return MintResult{}, err
	}

	res, err := u.Submitter.SubmitUserMint(ctx, signedTxB64)
	if err != nil {
		if errors.Is(err, ErrIndexingTimeout) {
			// トランザクションが載った可能性がある。failed に倒さず pending の
			// まま残し、stuck スキャンで突き合わせる。
			log.Printf("[usermint] indexing timeout logId=%s; left pending", logID)
			return MintResult{}, err
		}
		u.Mint.compensate(ctx, logID, avatarID, err)
		return MintResult{}, err
	}

	if err := u.Mint.MintLogs.MarkConfirmed(ctx, logID, res.AssetID, res.Signature, u.Mint.Now()); err != nil {
		log.Printf("[usermint] WARN: confirm write failed logId=%s assetId=%s err=%v", logID, res.AssetID, err)
		return MintResult{}, fmt.Errorf("finalize mint log: %w", err)
	}

	u.Mint.mirror(ctx, logID)

	log.Printf("[usermint] confirmed logId=%s avatar=%s assetId=%s", logID, entry.AvatarID, res.AssetID)
	return MintResult{LogID: logID, AssetID: res.AssetID, Signature: res.Signature, Leaf: res.Leaf}, nil
}
