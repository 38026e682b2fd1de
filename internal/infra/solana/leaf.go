// internal/infra/solana/leaf.go
package solana

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	usecase "fableforge/internal/application/usecase"
)

// ----------------------------------------------------------------------
// Leaf event parsing
// ----------------------------------------------------------------------
//
// bubblegum は mint のたびに LeafSchema イベントを noop インストラクションに
// 包んで出力する。トランザクション自体から葉データを読めるので、
// インデクサの遅延に左右されない(authoritative な取得経路)。

// rawLeafEvent mirrors the borsh layout of bubblegum's LeafSchemaEvent:
// event type, version, schema enum tag, then the LeafSchema::V1 fields.
type rawLeafEvent struct {
	EventType   uint8
	Version     uint8
	SchemaTag   uint8
	ID          [32]uint8
	Owner       [32]uint8
	Delegate    [32]uint8
	Nonce       uint64
	DataHash    [32]uint8
	CreatorHash [32]uint8
}

const (
	leafEventTypeLeafSchema = 1
	leafEventVersionV1      = 1
	leafSchemaTagV1         = 0
)

// ParseLeafFromTransaction walks the inner instructions of a confirmed mint
// transaction looking for the noop-wrapped leaf event, and returns the leaf
// data. Returns an error when the transaction carries no leaf event.
func ParseLeafFromTransaction(tx *TransactionResult) (*usecase.ChainLeaf, error) {
	if tx == nil {
		return nil, fmt.Errorf("solana leaf: transaction is nil")
	}

	noopIndex := -1
	for i, key := range tx.Transaction.Message.AccountKeys {
		if key == NoopProgramID.ToBase58() {
			noopIndex = i
			break
		}
	}
	if noopIndex < 0 {
		return nil, fmt.Errorf("solana leaf: noop program not referenced by transaction")
	}

	for _, inner := range tx.Meta.InnerInstructions {
		for _, ix := range inner.Instructions {
			if ix.ProgramIDIndex != noopIndex {
				continue
			}
			data, err := base58.Decode(ix.Data)
			if err != nil {
				continue
			}

			var ev rawLeafEvent
			if err := borsh.Deserialize(&ev, data); err != nil {
				continue
			}
			if ev.EventType != leafEventTypeLeafSchema ||
				ev.Version != leafEventVersionV1 ||
				ev.SchemaTag != leafSchemaTagV1 {
				continue
			}

			leaf := &usecase.ChainLeaf{
				AssetID:   common.PublicKeyFromBytes(ev.ID[:]).ToBase58(),
				Owner:     common.PublicKeyFromBytes(ev.Owner[:]).ToBase58(),
				Delegate:  common.PublicKeyFromBytes(ev.Delegate[:]).ToBase58(),
				Nonce:     ev.Nonce,
				LeafIndex: uint32(ev.Nonce),
			}
			copy(leaf.DataHash[:], ev.DataHash[:])
			copy(leaf.CreatorHash[:], ev.CreatorHash[:])
			return leaf, nil
		}
	}

	return nil, fmt.Errorf("solana leaf: no leaf event found in transaction")
}
