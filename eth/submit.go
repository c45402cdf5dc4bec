package eth

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Submitter drives the full transaction lifecycle: prepare, fill the
// nonce, sign, send, wait for the mined receipt, and await its required
// confirmations.
type Submitter struct {
	Provider Provider
	Network  *NetworkConfig
	Signer   Signer
}

// Submit runs txn through the pipeline and returns its confirmed receipt.
// Configuration failures reject the transaction before submission; VM
// errors from the node propagate classified.
func (s *Submitter) Submit(ctx context.Context, txn *Transaction) (*Receipt, error) {
	preparer := &Preparer{Provider: s.Provider, Network: s.Network}
	if err := preparer.Prepare(ctx, txn); err != nil {
		return nil, err
	}

	if txn.Nonce == nil {
		nonce, err := s.Provider.GetNonce(ctx, txn.Sender)
		if err != nil {
			return nil, err
		}
		txn.Nonce = &nonce
		log.Debug("Filled nonce", "nonce", nonce)
	}

	signed, err := s.Signer.Sign(txn)
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return nil, &SignatureError{Message: "the signer refused to sign the transaction"}
	}

	pending, err := s.Provider.SendTransaction(ctx, signed)
	if err != nil {
		return nil, err
	}

	receipt, err := s.waitForReceipt(ctx, pending.TxnHash)
	if err != nil {
		return nil, err
	}
	receipt.RequiredConfirmations = *txn.RequiredConfirmations

	tracker := &ConfirmationTracker{Provider: s.Provider, BlockTime: s.Network.BlockTime}
	return tracker.Await(ctx, receipt)
}

// waitForReceipt polls until the transaction is mined or the network's
// acceptance timeout elapses.
func (s *Submitter) waitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	timeout := s.Network.TransactionAcceptanceTimeout
	if timeout <= 0 {
		timeout = DEFAULT_TRANSACTION_TIMEOUT_SECONDS * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		receipt, err := s.Provider.GetReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if time.Now().After(deadline) {
			return nil, &TimeoutError{Message: "timeout waiting for transaction " + hash.Hex()}
		}
		interval := time.Second
		if remaining := time.Until(deadline); remaining < interval {
			interval = remaining
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return nil, err
		}
	}
}
