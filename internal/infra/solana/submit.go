// internal/infra/solana/submit.go
package solana

import (
	"context"
	"fmt"
	"log"
	"time"

	usecase "fableforge/internal/application/usecase"
)

// Submitter submits signed transactions and polls their status at a fixed
// interval up to a bounded timeout.
//
// 分類:
//   - confirmed/finalized かつ err なし  → 成功
//   - on-chain err                       → usecase.ErrChainExecution
//   - タイムアウト                        → usecase.ErrIndexingTimeout
//     (トランザクションが失敗したとは限らない。結果は不明、が正しい)
type Submitter struct {
	RPC          *JSONRPCClient
	PollInterval time.Duration
	Timeout      time.Duration
}

var _ usecase.TxSubmitPort = (*Submitter)(nil)

func NewSubmitter(rpc *JSONRPCClient, cluster string) *Submitter {
	timeout := 60 * time.Second
	if cluster != "mainnet-beta" {
		// devnet confirms slower
		timeout = 90 * time.Second
	}
	return &Submitter{
		RPC:          rpc,
		PollInterval: 2 * time.Second,
		Timeout:      timeout,
	}
}

// SubmitSigned implements usecase.TxSubmitPort.
func (s *Submitter) SubmitSigned(ctx context.Context, signedTxB64 string) (string, error) {
	if s == nil || s.RPC == nil {
		return "", fmt.Errorf("solana submit: not configured")
	}

	sig, err := s.RPC.SendTransaction(ctx, signedTxB64)
	if err != nil {
		// Rejected before landing (preflight / malformed): nothing executed.
		return "", fmt.Errorf("%w: send: %v", usecase.ErrChainExecution, err)
	}

	log.Printf("[submit] sent signature=%s", sig)
	return sig, s.waitForConfirmation(ctx, sig)
}

// waitForConfirmation polls getSignatureStatuses until the signature is
// confirmed, errors on-chain, or the timeout budget runs out.
func (s *Submitter) waitForConfirmation(ctx context.Context, sig string) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	deadline := time.Now().Add(timeout)
	for {
		st, err := s.RPC.GetSignatureStatus(ctx, sig)
		if err != nil {
			log.Printf("[submit] status poll error signature=%s err=%v", sig, err)
		} else if st != nil {
			if len(st.Err) > 0 && string(st.Err) != "null" {
				return fmt.Errorf("%w: signature=%s err=%s", usecase.ErrChainExecution, sig, string(st.Err))
			}
			if st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: signature=%s", usecase.ErrIndexingTimeout, sig)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
