// internal/application/usecase/errors.go
package usecase

import "errors"

// ------------------------------------------------------
// Errors (ledger execution)
// ------------------------------------------------------
//
// 予約フェーズのエラー(quota / supply / dedup)は各 domain パッケージの
// sentinel をそのまま伝播する。ここにはレジャー実行フェーズの分類だけを置く。

var (
	// ErrChainExecution: transaction landed but failed on-chain, or the mint
	// definitively failed after reservation. Not retryable with the same
	// transaction.
	ErrChainExecution = errors.New("mint: chain execution failed")

	// ErrIndexingTimeout: the ledger has not caught up within the polling
	// budget. The underlying transaction may still have succeeded — callers
	// must treat the outcome as unknown, not failed.
	ErrIndexingTimeout = errors.New("mint: ledger indexing timeout")
)
