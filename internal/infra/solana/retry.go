// internal/infra/solana/retry.go
package solana

import (
	"context"
	"time"
)

// RetryPolicy bounds a retry loop: up to MaxAttempts calls, sleeping
// BaseDelay * attempt between calls, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the sleep before attempt (1-based). Attempt 1 runs immediately.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay * time.Duration(attempt-1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// PolicyForCluster returns the retry schedule for the configured cluster.
// Devnet indexes noticeably slower than mainnet-beta, so it gets more
// attempts and longer delays.
func PolicyForCluster(cluster string) RetryPolicy {
	switch cluster {
	case "mainnet-beta":
		return RetryPolicy{MaxAttempts: 5, BaseDelay: 1 * time.Second, MaxDelay: 5 * time.Second}
	default: // devnet / testnet / localnet
		return RetryPolicy{MaxAttempts: 8, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
	}
}

// Do runs fn up to policy.MaxAttempts times. retryable decides whether an
// error is worth another attempt; a nil retryable retries every error.
// Context cancellation stops the loop immediately.
func Do(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if d := policy.Delay(attempt); d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
