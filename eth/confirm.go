package eth

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// nonceSyncIterations bounds the wait for the provider's view of the
// sender's nonce to advance past the receipt's nonce. This guards against
// counting confirmations against a stale provider view.
const nonceSyncIterations = 20

const nonceSyncInterval = time.Second

// ConfirmationTracker waits for receipts to reach their required
// confirmation count.
type ConfirmationTracker struct {
	Provider  Provider
	BlockTime time.Duration
	// NonceSyncInterval overrides the nonce polling interval; zero means
	// the one-second default.
	NonceSyncInterval time.Duration
}

// Await blocks until the receipt has its required confirmations.
// Already-failed receipts return immediately without any polling; zero
// required confirmations return right after nonce sync; receipts whose
// confirmations are already satisfied return without sleeping. Every wait
// iteration honors ctx cancellation.
func (t *ConfirmationTracker) Await(ctx context.Context, receipt *Receipt) (*Receipt, error) {
	if receipt.Failed() {
		// Skip waiting for confirmations when the transaction has failed.
		return receipt, nil
	}

	if err := t.awaitNonceSync(ctx, receipt); err != nil {
		return nil, err
	}

	if receipt.RequiredConfirmations == 0 {
		// The transaction might not be confirmed yet, but the caller
		// explicitly opted out of waiting.
		return receipt, nil
	}

	occurred, err := t.confirmationsOccurred(ctx, receipt)
	if err != nil {
		return nil, err
	}
	if occurred >= receipt.RequiredConfirmations {
		return receipt, nil
	}

	log.Info("Submitted", "hash", receipt.TxnHash.Hex())
	for occurred < receipt.RequiredConfirmations {
		log.Info("Confirmations", "occurred", occurred, "required", receipt.RequiredConfirmations)
		if err := sleepCtx(ctx, t.BlockTime/2); err != nil {
			return nil, err
		}
		occurred, err = t.confirmationsOccurred(ctx, receipt)
		if err != nil {
			return nil, err
		}
	}
	log.Info("Confirmed", "hash", receipt.TxnHash.Hex(), "confirmations", occurred)
	return receipt, nil
}

// awaitNonceSync polls the sender's on-chain nonce at fixed intervals
// until it has advanced past the receipt's nonce, failing with a
// TimeoutError after a bounded number of iterations.
func (t *ConfirmationTracker) awaitNonceSync(ctx context.Context, receipt *Receipt) error {
	interval := t.NonceSyncInterval
	if interval == 0 {
		interval = nonceSyncInterval
	}
	senderNonce, err := t.Provider.GetNonce(ctx, receipt.Sender)
	if err != nil {
		return err
	}
	for iteration := 0; senderNonce == receipt.Nonce; iteration++ {
		if iteration == nonceSyncIterations {
			return &TimeoutError{Message: "timeout waiting for sender's nonce to increase"}
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
		senderNonce, err = t.Provider.GetNonce(ctx, receipt.Sender)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *ConfirmationTracker) confirmationsOccurred(ctx context.Context, receipt *Receipt) (int, error) {
	latest, err := t.Provider.GetBlock(ctx, nil)
	if err != nil {
		return 0, err
	}
	if latest.Number < receipt.BlockNumber {
		return 0, nil
	}
	return int(latest.Number - receipt.BlockNumber), nil
}

// sleepCtx sleeps for the duration unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
