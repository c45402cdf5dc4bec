package eth

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Preparer fills network-dependent defaults on unsigned transactions.
type Preparer struct {
	Provider Provider
	Network  *NetworkConfig
}

// feeStrategies holds the per-variant fee defaulting logic, selected by
// the transaction's type tag.
var feeStrategies = map[TxType]func(ctx context.Context, p Provider, txn *Transaction) error{
	LegacyTxType:     prepareStaticFee,
	DynamicFeeTxType: prepareDynamicFee,
}

// Prepare mutates txn in place, in order: chain id, fee fields by
// transaction type, gas limit, required confirmations. Idempotent on
// re-application. The chain id is always overwritten with the network's
// expected value so signature verification catches cross-chain replay.
func (p *Preparer) Prepare(ctx context.Context, txn *Transaction) error {
	txn.ChainID = big.NewInt(p.Network.ChainID)

	strategy, ok := feeStrategies[txn.Type]
	if !ok {
		return &TransactionError{Message: fmt.Sprintf("unsupported transaction type %d", txn.Type)}
	}
	if err := strategy(ctx, p.Provider, txn); err != nil {
		return err
	}

	if err := p.resolveGasLimit(ctx, txn); err != nil {
		return err
	}

	if txn.RequiredConfirmations == nil {
		confirmations := p.Network.RequiredConfirmations
		txn.RequiredConfirmations = &confirmations
	} else if *txn.RequiredConfirmations < 0 {
		return &TransactionError{Message: "'required_confirmations' must be a positive integer"}
	}
	return nil
}

func prepareStaticFee(ctx context.Context, provider Provider, txn *Transaction) error {
	if txn.GasPrice != nil {
		return nil
	}
	price, err := provider.GasPrice(ctx)
	if err != nil {
		return err
	}
	txn.GasPrice = price
	log.Debug("Set gas price", "gas_price", price)
	return nil
}

func prepareDynamicFee(ctx context.Context, provider Provider, txn *Transaction) error {
	if txn.MaxPriorityFee == nil {
		fee, err := provider.PriorityFee(ctx)
		if err != nil {
			return err
		}
		txn.MaxPriorityFee = fee
	}
	if txn.MaxFee == nil {
		baseFee, err := provider.BaseFee(ctx)
		if err != nil {
			return err
		}
		txn.MaxFee = new(big.Int).Add(baseFee, txn.MaxPriorityFee)
	}
	// else: assume the caller specified the correct amount, or the
	// transaction fails and wastes gas.
	return nil
}

// resolveGasLimit turns the requested gas value into a concrete integer:
// a decimal string, a 0x-hex string, "max" (the network's block gas
// limit), or "auto"/unset (estimated against the in-progress transaction).
func (p *Preparer) resolveGasLimit(ctx context.Context, txn *Transaction) error {
	request := txn.Gas
	if request == "" && txn.GasLimit != 0 {
		// Caller supplied a raw numeric value; used as-is.
		return nil
	}
	if request == "" {
		request = p.Network.GasLimit
	}

	switch {
	case request == GasMax:
		maxGas, err := p.Provider.MaxGas(ctx)
		if err != nil {
			return err
		}
		txn.GasLimit = maxGas
	case request == GasAuto || request == "":
		estimate, err := p.Provider.EstimateGasCost(ctx, txn)
		if err != nil {
			return err
		}
		txn.GasLimit = estimate
	case strings.HasPrefix(request, "0x"):
		value, err := strconv.ParseUint(request[2:], 16, 64)
		if err != nil {
			return &TransactionError{Message: fmt.Sprintf("invalid gas limit %q", request)}
		}
		txn.GasLimit = value
	default:
		value, err := strconv.ParseUint(request, 10, 64)
		if err != nil {
			return &TransactionError{Message: fmt.Sprintf("invalid gas limit %q", request)}
		}
		txn.GasLimit = value
	}
	// Clear the request so re-preparation keeps the resolved value.
	txn.Gas = ""
	return nil
}
