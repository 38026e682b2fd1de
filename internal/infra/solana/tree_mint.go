// internal/infra/solana/tree_mint.go
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	usecase "fableforge/internal/application/usecase"
)

// ----------------------------------------------------------------------
// Bubblegum mint_v1 argument layout (borsh)
// ----------------------------------------------------------------------

type creatorArgs struct {
	Address  [32]uint8
	Verified bool
	Share    uint8
}

type collectionArgs struct {
	Verified bool
	Key      [32]uint8
}

type usesArgs struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

type metadataArgs struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	PrimarySaleHappened  bool
	IsMutable            bool
	EditionNonce         *uint8
	TokenStandard        *uint8 // 0 = NonFungible
	Collection           *collectionArgs
	Uses                 *usesArgs
	TokenProgramVersion  uint8 // 0 = Original
	Creators             []creatorArgs
}

// ----------------------------------------------------------------------
// TreeMinter
// ----------------------------------------------------------------------

// TreeMinter mints compressed assets into the configured merkle tree using
// the issuing authority wallet. It implements the three ledger mint ports:
// service-paid mint, user-paid build, and user-paid submit.
type TreeMinter struct {
	RPC       *JSONRPCClient
	Submit    *Submitter
	Authority *MintAuthority
	Tree      common.PublicKey

	// Policy bounds the post-submission poll for the mint transaction;
	// the emitted asset id is not queryable immediately after submission.
	Policy RetryPolicy
}

var (
	_ usecase.LedgerMintPort     = (*TreeMinter)(nil)
	_ usecase.UserMintBuildPort  = (*TreeMinter)(nil)
	_ usecase.UserMintSubmitPort = (*TreeMinter)(nil)
)

func NewTreeMinter(rpc *JSONRPCClient, submit *Submitter, authority *MintAuthority, tree string, policy RetryPolicy) (*TreeMinter, error) {
	if rpc == nil || submit == nil || authority == nil {
		return nil, fmt.Errorf("tree minter: missing dependencies")
	}
	if tree == "" {
		return nil, fmt.Errorf("tree minter: merkle tree address is empty")
	}
	return &TreeMinter{
		RPC:       rpc,
		Submit:    submit,
		Authority: authority,
		Tree:      common.PublicKeyFromString(tree),
		Policy:    policy,
	}, nil
}

// buildMintInstruction assembles a bubblegum mint_v1 instruction.
// Soulbound mints delegate the leaf to the authority so freeze can follow.
func (m *TreeMinter) buildMintInstruction(p usecase.ChainMintParams) (types.Instruction, error) {
	owner := common.PublicKeyFromString(p.OwnerWallet)
	authority := m.Authority.Account.PublicKey

	leafDelegate := owner
	if p.Soulbound {
		leafDelegate = authority
	}

	treeAuthority, err := treeAuthorityPDA(m.Tree)
	if err != nil {
		return types.Instruction{}, err
	}

	tokenStandard := uint8(0) // NonFungible
	var authorityKey [32]uint8
	copy(authorityKey[:], authority.Bytes())

	args := metadataArgs{
		Name:                 p.Name,
		Symbol:               p.Symbol,
		URI:                  p.MetadataURI,
		SellerFeeBasisPoints: p.SellerFeeBasisPoints,
		PrimarySaleHappened:  false,
		IsMutable:            false,
		TokenStandard:        &tokenStandard,
		TokenProgramVersion:  0, // Original
		Creators: []creatorArgs{
			{Address: authorityKey, Verified: true, Share: 100},
		},
	}

	argData, err := borsh.Serialize(args)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("serialize metadata args: %w", err)
	}

	data := append(anchorDiscriminator("mint_v1"), argData...)

	return types.Instruction{
		ProgramID: BubblegumProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: treeAuthority, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: false, IsWritable: false},
			{PubKey: leafDelegate, IsSigner: false, IsWritable: false},
			{PubKey: m.Tree, IsSigner: false, IsWritable: true},
			{PubKey: authority, IsSigner: true, IsWritable: true},  // payer
			{PubKey: authority, IsSigner: true, IsWritable: false}, // tree delegate
			{PubKey: NoopProgramID, IsSigner: false, IsWritable: false},
			{PubKey: CompressionProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
		},
		Data: data,
	}, nil
}

// MintCompressed implements usecase.LedgerMintPort: submit the mint signed by
// the authority, wait for confirmation, then poll the transaction for the
// emitted leaf until the cluster serves it.
func (m *TreeMinter) MintCompressed(ctx context.Context, p usecase.ChainMintParams) (*usecase.ChainMintResult, error) {
	ix, err := m.buildMintInstruction(p)
	if err != nil {
		return nil, err
	}

	blockhash, err := m.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: blockhash: %v", usecase.ErrChainExecution, err)
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        m.Authority.Account.PublicKey,
			RecentBlockhash: blockhash,
			Instructions:    []types.Instruction{ix},
		}),
		Signers: []types.Account{m.Authority.Account},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: build transaction: %v", usecase.ErrChainExecution, err)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize transaction: %v", usecase.ErrChainExecution, err)
	}

	sig, err := m.Submit.SubmitSigned(ctx, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return nil, err
	}

	return m.resolveMintResult(ctx, sig)
}

// BuildUserMintTransaction implements usecase.UserMintBuildPort: the caller
// pays fees and must counter-sign; the authority (tree delegate) pre-signs.
func (m *TreeMinter) BuildUserMintTransaction(ctx context.Context, p usecase.ChainMintParams) (string, error) {
	ix, err := m.buildMintInstruction(p)
	if err != nil {
		return "", err
	}
	// User pays: swap the payer meta to the owner wallet.
	ix.Accounts[4] = types.AccountMeta{
		PubKey:     common.PublicKeyFromString(p.OwnerWallet),
		IsSigner:   true,
		IsWritable: true,
	}

	blockhash, err := m.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: blockhash: %v", usecase.ErrChainExecution, err)
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        common.PublicKeyFromString(p.OwnerWallet),
		RecentBlockhash: blockhash,
		Instructions:    []types.Instruction{ix},
	})

	return partialSign(msg, m.Authority.Account)
}

// SubmitUserMint implements usecase.UserMintSubmitPort.
func (m *TreeMinter) SubmitUserMint(ctx context.Context, signedTxB64 string) (*usecase.ChainMintResult, error) {
	sig, err := m.Submit.SubmitSigned(ctx, signedTxB64)
	if err != nil {
		return nil, err
	}
	return m.resolveMintResult(ctx, sig)
}

// resolveMintResult polls getTransaction until the confirmed mint is served,
// then extracts the leaf. The transaction is not queryable immediately after
// confirmation on slower clusters.
func (m *TreeMinter) resolveMintResult(ctx context.Context, sig string) (*usecase.ChainMintResult, error) {
	var leaf *usecase.ChainLeaf

	err := Do(ctx, m.Policy, nil, func(ctx context.Context, attempt int) error {
		txr, err := m.RPC.GetTransaction(ctx, sig)
		if err != nil {
			return err
		}
		if txr == nil {
			log.Printf("[tree-mint] transaction not indexed yet signature=%s attempt=%d", sig, attempt)
			return fmt.Errorf("transaction not indexed yet")
		}
		if len(txr.Meta.Err) > 0 && string(txr.Meta.Err) != "null" {
			return fmt.Errorf("%w: signature=%s err=%s", usecase.ErrChainExecution, sig, string(txr.Meta.Err))
		}

		l, err := ParseLeafFromTransaction(txr)
		if err != nil {
			return err
		}
		leaf = l
		return nil
	})
	if err != nil {
		if errors.Is(err, usecase.ErrChainExecution) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: mint signature=%s: %v", usecase.ErrIndexingTimeout, sig, err)
	}

	leaf.Tree = m.Tree.ToBase58()
	log.Printf("[tree-mint] minted assetId=%s signature=%s nonce=%d", leaf.AssetID, sig, leaf.Nonce)

	return &usecase.ChainMintResult{
		AssetID:   leaf.AssetID,
		Signature: sig,
		Leaf:      leaf,
	}, nil
}

// partialSign serializes msg with the authority's signature filled in and
// zero placeholders for the remaining required signers (the user adds theirs
// client-side).
func partialSign(msg types.Message, authority types.Account) (string, error) {
	msgData, err := msg.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize message: %w", err)
	}

	numSigners := int(msg.Header.NumRequireSignatures)
	sigs := make([]types.Signature, numSigners)
	for i := 0; i < numSigners; i++ {
		sigs[i] = make([]byte, 64)
	}

	found := false
	for i := 0; i < numSigners && i < len(msg.Accounts); i++ {
		if msg.Accounts[i] == authority.PublicKey {
			sigs[i] = ed25519.Sign(authority.PrivateKey, msgData)
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("authority %s is not a required signer", authority.PublicKey.ToBase58())
	}

	tx := types.Transaction{
		Signatures: sigs,
		Message:    msg,
	}
	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
