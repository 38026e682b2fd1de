// internal/infra/solana/freeze.go
package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	usecase "fableforge/internal/application/usecase"
)

// LedgerReader is the slice of the RPC client the freeze coordinator needs.
// Narrowed to an interface so tests can script proof availability.
type LedgerReader interface {
	GetAssetProof(ctx context.Context, assetID string) (*AssetProofResult, error)
	GetAsset(ctx context.Context, assetID string) (*AssetResult, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
}

var _ LedgerReader = (*JSONRPCClient)(nil)

// TxSender submits one signed transaction and waits for its confirmation.
type TxSender interface {
	SubmitSigned(ctx context.Context, signedTxB64 string) (string, error)
}

// 内部でのみ使う再試行条件。Freeze Coordinator の外には決して出さない。
var (
	errIndexLagging = errors.New("solana freeze: index has not caught up")
	errStaleProof   = errors.New("solana freeze: stale inclusion proof")
)

// FreezeCoordinator locks a freshly-minted asset soulbound. The DAS index may
// lag behind the mint, so proof fetches and stale roots are retried with
// increasing delay rather than failed outright.
type FreezeCoordinator struct {
	Reader    LedgerReader
	Sender    TxSender
	Authority *MintAuthority
	Tree      common.PublicKey
	Policy    RetryPolicy
}

var _ usecase.FreezePort = (*FreezeCoordinator)(nil)

func NewFreezeCoordinator(reader LedgerReader, sender TxSender, authority *MintAuthority, tree string, policy RetryPolicy) (*FreezeCoordinator, error) {
	if reader == nil || sender == nil || authority == nil {
		return nil, fmt.Errorf("freeze coordinator: missing dependencies")
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	return &FreezeCoordinator{
		Reader:    reader,
		Sender:    sender,
		Authority: authority,
		Tree:      common.PublicKeyFromString(tree),
		Policy:    policy,
	}, nil
}

type freezeArgs struct {
	Root        [32]uint8
	DataHash    [32]uint8
	CreatorHash [32]uint8
	Nonce       uint64
	Index       uint32
}

// FreezeAsset implements usecase.FreezePort.
//
// Loop up to Policy.MaxAttempts with increasing delay. The freeze instruction
// is built preferentially from leaf data returned by the mint transaction
// (authoritative, immediately available) rather than from the index, which
// may still describe the tree before this mint. A proof whose root does not
// match the leaf's computed root is retried, not failed: the index is still
// catching up.
func (f *FreezeCoordinator) FreezeAsset(ctx context.Context, assetID, ownerWallet string, leaf *usecase.ChainLeaf) (string, error) {
	if f == nil || f.Reader == nil || f.Sender == nil {
		return "", fmt.Errorf("freeze coordinator: not configured")
	}

	mintedSeen := leaf != nil
	var signature string

	retryable := func(err error) bool {
		return errors.Is(err, errIndexLagging) || errors.Is(err, errStaleProof)
	}

	err := Do(ctx, f.Policy, retryable, func(ctx context.Context, attempt int) error {
		proof, err := f.Reader.GetAssetProof(ctx, assetID)
		if err != nil {
			return fmt.Errorf("%w: %v", errIndexLagging, err)
		}
		if proof == nil {
			log.Printf("[freeze] proof unavailable assetId=%s attempt=%d", assetID, attempt)
			return errIndexLagging
		}

		if leaf == nil {
			asset, err := f.Reader.GetAsset(ctx, assetID)
			if err != nil || asset == nil {
				log.Printf("[freeze] asset record unavailable assetId=%s attempt=%d", assetID, attempt)
				return errIndexLagging
			}
			mintedSeen = true
			l, err := leafFromAsset(asset, ownerWallet)
			if err != nil {
				return err
			}
			leaf = l
		}

		sig, err := f.submitFreeze(ctx, assetID, leaf, proof)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	if err != nil {
		if errors.Is(err, errIndexLagging) || errors.Is(err, errStaleProof) {
			// Exhausted the retry budget on index lag. Distinguish a mint we
			// actually observed from one that never happened so operators can
			// reconcile partial successes.
			if mintedSeen {
				return "", fmt.Errorf("%w: assetId=%s minted but not frozen", usecase.ErrChainExecution, assetID)
			}
			return "", fmt.Errorf("%w: assetId=%s never minted", usecase.ErrChainExecution, assetID)
		}
		return "", err
	}

	log.Printf("[freeze] frozen assetId=%s signature=%s", assetID, signature)
	return signature, nil
}

// submitFreeze verifies proof freshness, then builds, signs and submits the
// freeze instruction with the authority as leaf delegate.
func (f *FreezeCoordinator) submitFreeze(ctx context.Context, assetID string, leaf *usecase.ChainLeaf, proof *AssetProofResult) (string, error) {
	root, err := decodeHash32(proof.Root)
	if err != nil {
		return "", fmt.Errorf("decode proof root: %w", err)
	}
	proofNodes := make([][32]byte, 0, len(proof.Proof))
	for _, p := range proof.Proof {
		n, err := decodeHash32(p)
		if err != nil {
			return "", fmt.Errorf("decode proof node: %w", err)
		}
		proofNodes = append(proofNodes, n)
	}

	leafHash := hashLeafV1(
		common.PublicKeyFromString(leaf.AssetID),
		common.PublicKeyFromString(leaf.Owner),
		common.PublicKeyFromString(leaf.Delegate),
		leaf.Nonce,
		leaf.DataHash,
		leaf.CreatorHash,
	)
	if foldProof(leafHash, leaf.Nonce, proofNodes) != root {
		// Index still describes the tree before this mint.
		return "", errStaleProof
	}

	treeAuthority, err := treeAuthorityPDA(f.Tree)
	if err != nil {
		return "", err
	}

	args := freezeArgs{
		Root:        root,
		DataHash:    leaf.DataHash,
		CreatorHash: leaf.CreatorHash,
		Nonce:       leaf.Nonce,
		Index:       leaf.LeafIndex,
	}
	argData, err := borsh.Serialize(args)
	if err != nil {
		return "", fmt.Errorf("serialize freeze args: %w", err)
	}

	accounts := []types.AccountMeta{
		{PubKey: treeAuthority, IsSigner: false, IsWritable: false},
		{PubKey: common.PublicKeyFromString(leaf.Owner), IsSigner: false, IsWritable: false},
		{PubKey: f.Authority.Account.PublicKey, IsSigner: true, IsWritable: false}, // leaf delegate
		{PubKey: f.Tree, IsSigner: false, IsWritable: true},
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
		Data:      append(anchorDiscriminator("freeze"), argData...),
	}

	blockhash, err := f.Reader.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: blockhash: %v", errIndexLagging, err)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        f.Authority.Account.PublicKey,
			RecentBlockhash: blockhash,
			Instructions:    []types.Instruction{ix},
		}),
		Signers: []types.Account{f.Authority.Account},
	})
	if err != nil {
		return "", fmt.Errorf("build freeze transaction: %w", err)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize freeze transaction: %w", err)
	}

	return f.Sender.SubmitSigned(ctx, base64.StdEncoding.EncodeToString(raw))
}

// leafFromAsset reconstructs leaf data from the DAS record (fallback path).
func leafFromAsset(asset *AssetResult, ownerWallet string) (*usecase.ChainLeaf, error) {
	dataHash, err := decodeHash32(asset.Compression.DataHash)
	if err != nil {
		return nil, fmt.Errorf("decode data hash: %w", err)
	}
	creatorHash, err := decodeHash32(asset.Compression.CreatorHash)
	if err != nil {
		return nil, fmt.Errorf("decode creator hash: %w", err)
	}

	owner := asset.Ownership.Owner
	if owner == "" {
		owner = ownerWallet
	}
	delegate := asset.Ownership.Delegate
	if delegate == "" {
		delegate = owner
	}

	leaf := &usecase.ChainLeaf{
		AssetID:   asset.ID,
		Owner:     owner,
		Delegate:  delegate,
		Tree:      asset.Compression.Tree,
		Nonce:     asset.Compression.LeafID,
		LeafIndex: uint32(asset.Compression.LeafID),
	}
	leaf.DataHash = dataHash
	leaf.CreatorHash = creatorHash
	return leaf, nil
}

func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := base58.Decode(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("unexpected hash length %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
