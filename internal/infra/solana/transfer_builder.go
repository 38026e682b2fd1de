// internal/infra/solana/transfer_builder.go
package solana

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	usecase "fableforge/internal/application/usecase"
	transferdom "fableforge/internal/domain/transfer"
)

// TransferBuilder validates on-ledger ownership/transferability and builds a
// bubblegum transfer transaction: the service (authority) pays the fee and
// pre-signs; the current owner is a required co-signer.
type TransferBuilder struct {
	Reader    LedgerReader
	Authority *MintAuthority
}

var _ usecase.TransferBuildPort = (*TransferBuilder)(nil)

func NewTransferBuilder(reader LedgerReader, authority *MintAuthority) (*TransferBuilder, error) {
	if reader == nil || authority == nil {
		return nil, fmt.Errorf("transfer builder: missing dependencies")
	}
	return &TransferBuilder{Reader: reader, Authority: authority}, nil
}

type transferArgs struct {
	Root        [32]uint8
	DataHash    [32]uint8
	CreatorHash [32]uint8
	Nonce       uint64
	Index       uint32
}

// BuildTransferTransaction implements usecase.TransferBuildPort.
// Ownership and transferability checks run against the current index before
// anything touches the chain.
func (b *TransferBuilder) BuildTransferTransaction(ctx context.Context, assetID, ownerWallet, recipient string) (string, error) {
	asset, err := b.Reader.GetAsset(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("fetch asset: %w", err)
	}
	if asset == nil {
		return "", fmt.Errorf("%w: assetId=%s not indexed", usecase.ErrIndexingTimeout, assetID)
	}
	if asset.Burnt || asset.Ownership.Frozen {
		return "", transferdom.ErrNotTransferable
	}
	if asset.Ownership.Owner != ownerWallet {
		return "", transferdom.ErrOwnerMismatch
	}

	proof, err := b.Reader.GetAssetProof(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("fetch proof: %w", err)
	}
	if proof == nil {
		return "", fmt.Errorf("%w: proof for assetId=%s not indexed", usecase.ErrIndexingTimeout, assetID)
	}

	root, err := decodeHash32(proof.Root)
	if err != nil {
		return "", fmt.Errorf("decode proof root: %w", err)
	}
	dataHash, err := decodeHash32(asset.Compression.DataHash)
	if err != nil {
		return "", fmt.Errorf("decode data hash: %w", err)
	}
	creatorHash, err := decodeHash32(asset.Compression.CreatorHash)
	if err != nil {
		return "", fmt.Errorf("decode creator hash: %w", err)
	}

	tree := common.PublicKeyFromString(asset.Compression.Tree)
	treeAuthority, err := treeAuthorityPDA(tree)
	if err != nil {
		return "", err
	}

	args := transferArgs{
		Root:        root,
		DataHash:    dataHash,
		CreatorHash: creatorHash,
		Nonce:       asset.Compression.LeafID,
		Index:       uint32(asset.Compression.LeafID),
	}
	argData, err := borsh.Serialize(args)
	if err != nil {
		return "", fmt.Errorf("serialize transfer args: %w", err)
	}

	owner := common.PublicKeyFromString(ownerWallet)
	accounts := []types.AccountMeta{
		{PubKey: treeAuthority, IsSigner: false, IsWritable: false},
		{PubKey: owner, IsSigner: true, IsWritable: false}, // leaf owner co-signs
		{PubKey: owner, IsSigner: false, IsWritable: false},
		{PubKey: common.PublicKeyFromString(recipient), IsSigner: false, IsWritable: false},
		{PubKey: tree, IsSigner: false, IsWritable: true},
		{PubKey: NoopProgramID, IsSigner: false, IsWritable: false},
		{PubKey: CompressionProgramID, IsSigner: false, IsWritable: false},
		{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	for _, n := range proof.Proof {
		accounts = append(accounts, types.AccountMeta{
			PubKey: common.PublicKeyFromString(n), IsSigner: false, IsWritable: false,
		})
	}

	ix := types.Instruction{
		ProgramID: BubblegumProgramID,
		Accounts:  accounts,
		Data:      append(anchorDiscriminator("transfer"), argData...),
	}

	blockhash, err := b.Reader.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("blockhash: %w", err)
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        b.Authority.Account.PublicKey,
		RecentBlockhash: blockhash,
		Instructions:    []types.Instruction{ix},
	})

	return partialSign(msg, b.Authority.Account)
}
