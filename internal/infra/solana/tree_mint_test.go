package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// base58 for 32 zero bytes; good enough as a recent blockhash in tests.
const testBlockhash = "11111111111111111111111111111111"

func twoSignerMessage(t *testing.T, payer, cosigner types.Account) types.Message {
	t.Helper()
	return types.NewMessage(types.NewMessageParam{
		FeePayer:        payer.PublicKey,
		RecentBlockhash: testBlockhash,
		Instructions: []types.Instruction{
			{
				ProgramID: common.SystemProgramID,
				Accounts: []types.AccountMeta{
					{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true},
					{PubKey: cosigner.PublicKey, IsSigner: true, IsWritable: false},
				},
				Data: []byte{},
			},
		},
	})
}

func TestPartialSign(t *testing.T) {
	payer := types.NewAccount()
	authority := types.NewAccount()
	msg := twoSignerMessage(t, payer, authority)

	b64, err := partialSign(msg, authority)
	if err != nil {
		t.Fatalf("partialSign: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	tx, err := types.TransactionDeserialize(raw)
	if err != nil {
		t.Fatalf("deserialize transaction: %v", err)
	}

	numSigners := int(msg.Header.NumRequireSignatures)
	if len(tx.Signatures) != numSigners {
		t.Fatalf("signatures = %d, want %d", len(tx.Signatures), numSigners)
	}

	msgData, err := msg.Serialize()
	if err != nil {
		t.Fatalf("serialize message: %v", err)
	}

	zero := make([]byte, 64)
	signed := 0
	for i, sig := range tx.Signatures {
		if bytes.Equal(sig, zero) {
			continue
		}
		signed++
		if msg.Accounts[i] != authority.PublicKey {
			t.Fatalf("signature at index %d does not belong to the authority", i)
		}
		if !ed25519.Verify(ed25519.PublicKey(authority.PublicKey.Bytes()), msgData, sig) {
			t.Fatal("authority signature does not verify")
		}
	}
	if signed != 1 {
		t.Fatalf("signed slots = %d, want 1 (user signs client-side)", signed)
	}
}

func TestPartialSignAuthorityNotASigner(t *testing.T) {
	payer := types.NewAccount()
	cosigner := types.NewAccount()
	msg := twoSignerMessage(t, payer, cosigner)

	if _, err := partialSign(msg, types.NewAccount()); err == nil {
		t.Fatal("expected error for a non-signer authority")
	}
}
