// internal/infra/solana/programs.go
package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"golang.org/x/crypto/sha3"
)

// Program ids involved in compressed-asset issuance.
var (
	// Metaplex Bubblegum (compressed NFT) program.
	BubblegumProgramID = common.PublicKeyFromString("BGUMAp9Gq7iTEuizy4pqaxsTyUCBK68MDJK1YfbaB6Fx")

	// SPL account-compression program (merkle tree storage).
	CompressionProgramID = common.PublicKeyFromString("cmtDvXumGCrqC1Age74AVPhSRVXJMd8PJS91L8KbNCK")

	// SPL noop program: bubblegum wraps leaf events in noop instructions so
	// indexers (and we) can read them back from the transaction.
	NoopProgramID = common.PublicKeyFromString("noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV")
)

// anchorDiscriminator returns the 8-byte anchor instruction discriminator:
// sha256("global:<name>")[0:8].
func anchorDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

// treeAuthorityPDA derives the bubblegum tree-config account for a merkle tree.
func treeAuthorityPDA(tree common.PublicKey) (common.PublicKey, error) {
	pda, _, err := common.FindProgramAddress([][]byte{tree.Bytes()}, BubblegumProgramID)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("tree authority pda: %w", err)
	}
	return pda, nil
}

// assetIDFromTree derives the asset id PDA for (tree, leaf nonce).
func assetIDFromTree(tree common.PublicKey, nonce uint64) (common.PublicKey, error) {
	nonceLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceLE, nonce)

	pda, _, err := common.FindProgramAddress(
		[][]byte{[]byte("asset"), tree.Bytes(), nonceLE},
		BubblegumProgramID,
	)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("asset pda: %w", err)
	}
	return pda, nil
}

// ----------------------------------------------------------------------
// Merkle hashing (keccak256, per spl-account-compression)
// ----------------------------------------------------------------------

func keccak(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashLeafV1 computes the bubblegum LeafSchema::V1 hash:
// keccak(0x01, id, owner, delegate, nonce_le, data_hash, creator_hash).
func hashLeafV1(id, owner, delegate common.PublicKey, nonce uint64, dataHash, creatorHash [32]byte) [32]byte {
	nonceLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceLE, nonce)

	return keccak(
		[]byte{0x01},
		id.Bytes(),
		owner.Bytes(),
		delegate.Bytes(),
		nonceLE,
		dataHash[:],
		creatorHash[:],
	)
}

// foldProof recomputes the tree root by folding the proof path onto leafHash.
// leafIndex selects the left/right position at each level.
func foldProof(leafHash [32]byte, leafIndex uint64, proof [][32]byte) [32]byte {
	node := leafHash
	for level, sibling := range proof {
		if (leafIndex>>uint(level))&1 == 1 {
			node = keccak(sibling[:], node[:])
		} else {
			node = keccak(node[:], sibling[:])
		}
	}
	return node
}
