package solana

import (
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
)

func leafEventTx(t *testing.T, ev rawLeafEvent) *TransactionResult {
	t.Helper()

	data, err := borsh.Serialize(ev)
	if err != nil {
		t.Fatalf("serialize leaf event: %v", err)
	}

	tx := &TransactionResult{}
	tx.Transaction.Message.AccountKeys = []string{
		"payer11111111111111111111111111111111111111",
		NoopProgramID.ToBase58(),
	}
	tx.Meta.InnerInstructions = []struct {
		Index        int `json:"index"`
		Instructions []struct {
			ProgramIDIndex int    `json:"programIdIndex"`
			Data           string `json:"data"`
		} `json:"instructions"`
	}{
		{
			Index: 0,
			Instructions: []struct {
				ProgramIDIndex int    `json:"programIdIndex"`
				Data           string `json:"data"`
			}{
				{ProgramIDIndex: 1, Data: base58.Encode(data)},
			},
		},
	}
	return tx
}

func TestParseLeafFromTransaction(t *testing.T) {
	var id, owner [32]uint8
	id[0] = 0xAA
	owner[0] = 0xBB

	ev := rawLeafEvent{
		EventType: leafEventTypeLeafSchema,
		Version:   leafEventVersionV1,
		SchemaTag: leafSchemaTagV1,
		ID:        id,
		Owner:     owner,
		Nonce:     42,
	}
	ev.DataHash[0] = 0x01
	ev.CreatorHash[0] = 0x02

	leaf, err := ParseLeafFromTransaction(leafEventTx(t, ev))
	if err != nil {
		t.Fatalf("ParseLeafFromTransaction: %v", err)
	}

	if leaf.AssetID != common.PublicKeyFromBytes(id[:]).ToBase58() {
		t.Fatalf("assetID = %q, want key of id bytes", leaf.AssetID)
	}
	if leaf.Owner != common.PublicKeyFromBytes(owner[:]).ToBase58() {
		t.Fatalf("owner = %q, want key of owner bytes", leaf.Owner)
	}
	if leaf.Nonce != 42 || leaf.LeafIndex != 42 {
		t.Fatalf("nonce = %d leafIndex = %d, want 42", leaf.Nonce, leaf.LeafIndex)
	}
	if leaf.DataHash[0] != 0x01 || leaf.CreatorHash[0] != 0x02 {
		t.Fatalf("hashes not copied: %v %v", leaf.DataHash[:1], leaf.CreatorHash[:1])
	}
}

func TestParseLeafFromTransactionNoNoop(t *testing.T) {
	tx := &TransactionResult{}
	tx.Transaction.Message.AccountKeys = []string{"payer11111111111111111111111111111111111111"}

	if _, err := ParseLeafFromTransaction(tx); err == nil {
		t.Fatal("expected error when noop program is absent")
	}
}

func TestParseLeafFromTransactionWrongEventType(t *testing.T) {
	ev := rawLeafEvent{EventType: 9, Version: leafEventVersionV1, SchemaTag: leafSchemaTagV1}

	if _, err := ParseLeafFromTransaction(leafEventTx(t, ev)); err == nil {
		t.Fatal("expected error for non-leaf event")
	}
}

func TestParseLeafFromTransactionNil(t *testing.T) {
	if _, err := ParseLeafFromTransaction(nil); err == nil {
		t.Fatal("expected error for nil transaction")
	}
}
