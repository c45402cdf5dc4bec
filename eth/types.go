package eth

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/nando-os/evmscope/trace"
)

// TxType discriminates the closed set of supported transaction variants.
type TxType uint8

const (
	// LegacyTxType prices the transaction with a single gas price.
	LegacyTxType TxType = 0
	// DynamicFeeTxType prices the transaction with EIP-1559 max fee and
	// priority fee fields.
	DynamicFeeTxType TxType = 2
)

// Gas limit literals accepted on a transaction request before preparation.
const (
	GasAuto = "auto"
	GasMax  = "max"
)

// Transaction is an unsigned transaction request. Callers populate what
// they know; Prepare fills network-dependent defaults in place. Exactly
// one fee-field set applies, determined by Type: GasPrice for legacy,
// MaxFee/MaxPriorityFee for dynamic. Once signed and submitted the
// transaction is not mutated further.
type Transaction struct {
	ChainID  *big.Int
	Sender   common.Address
	Receiver *common.Address // nil deploys a contract
	Nonce    *uint64         // nil means "pick next"
	Value    *big.Int
	Data     []byte
	Type     TxType

	GasPrice       *big.Int // legacy only
	MaxFee         *big.Int // dynamic only
	MaxPriorityFee *big.Int // dynamic only

	// Gas is the requested gas limit: a decimal string, a 0x-hex string,
	// "max", "auto", or empty for the network default. Prepare resolves it
	// into GasLimit; after preparation GasLimit is authoritative.
	Gas      string
	GasLimit uint64

	// RequiredConfirmations defaults from network policy when nil.
	RequiredConfirmations *int

	Signature []byte
}

// Block is the subset of a block header these components consume.
type Block struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64
	GasLimit  uint64
	GasUsed   uint64
	BaseFee   *big.Int
}

// Receipt is the immutable record of an executed transaction. The trace is
// fetched lazily, at most once, and cached for the receipt's lifetime.
type Receipt struct {
	TxnHash               common.Hash
	Sender                common.Address
	Receiver              *common.Address
	ContractAddress       *common.Address // set for deployments
	Nonce                 uint64
	GasUsed               uint64
	GasLimit              uint64
	GasPrice              *big.Int
	Status                uint64
	BlockNumber           uint64
	Value                 *big.Int
	InputData             []byte
	Logs                  []*types.Log
	RequiredConfirmations int

	traceOnce sync.Once
	trace     []trace.Frame
	traceErr  error
}

// Failed reports whether the transaction reverted or otherwise failed.
func (r *Receipt) Failed() bool {
	return r.Status == types.ReceiptStatusFailed
}

// RanOutOfGas reports whether the transaction failed having consumed its
// entire gas allowance.
func (r *Receipt) RanOutOfGas() bool {
	return r.Failed() && r.GasUsed == r.GasLimit
}

// Trace returns the receipt's opcode-level execution trace, fetching it
// through fetch on first use and memoizing the result. Safe to read
// concurrently once populated.
func (r *Receipt) Trace(fetch func(common.Hash) ([]trace.Frame, error)) ([]trace.Frame, error) {
	r.traceOnce.Do(func() {
		r.trace, r.traceErr = fetch(r.TxnHash)
	})
	return r.trace, r.traceErr
}
