package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/nando-os/evmscope/trace"
)

// Provider is the network capability these components depend on. All
// operations may fail with provider-specific errors that upper layers
// translate into the package error taxonomy.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool

	ChainID(ctx context.Context) (*big.Int, error)
	GetBlock(ctx context.Context, number *big.Int) (*Block, error)
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetNonce(ctx context.Context, address common.Address) (uint64, error)
	EstimateGasCost(ctx context.Context, txn *Transaction) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	PriorityFee(ctx context.Context) (*big.Int, error)
	BaseFee(ctx context.Context) (*big.Int, error)
	MaxGas(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, signed *types.Transaction) (*Receipt, error)
	GetReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
	GetTransactionTrace(ctx context.Context, hash common.Hash) ([]trace.Frame, error)
	GetCallTrace(ctx context.Context, hash common.Hash) (*trace.GethCallFrame, error)
	GetParityTrace(ctx context.Context, hash common.Hash) ([]trace.ParityTrace, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]types.Log, error)
}

type rpcProvider struct {
	url     string
	chainID int64

	rpc *rpc.Client
	eth *ethclient.Client
}

// NewProvider returns a JSON-RPC backed provider for the configured
// network. Call Connect before use.
func NewProvider(cfg *NetworkConfig) Provider {
	return &rpcProvider{url: cfg.RPCURL, chainID: cfg.ChainID}
}

func (p *rpcProvider) Connect(ctx context.Context) error {
	log.Info("Connecting to RPC", "url", p.url)
	client, err := rpc.DialContext(ctx, p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to network: %w", err)
	}
	p.rpc = client
	p.eth = ethclient.NewClient(client)

	// Verify the connection and that the node serves the expected chain.
	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		p.Disconnect()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if p.chainID != 0 && chainID.Int64() != p.chainID {
		p.Disconnect()
		return fmt.Errorf("expected chain ID %d, got %d", p.chainID, chainID.Int64())
	}
	log.Info("Connected", "chain_id", chainID.Int64())
	return nil
}

func (p *rpcProvider) Disconnect() {
	if p.rpc != nil {
		p.rpc.Close()
		p.rpc = nil
		p.eth = nil
	}
}

func (p *rpcProvider) IsConnected() bool {
	return p.rpc != nil
}

func (p *rpcProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.eth.ChainID(ctx)
}

func (p *rpcProvider) GetBlock(ctx context.Context, number *big.Int) (*Block, error) {
	header, err := p.eth.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, &ProviderError{Message: "failed to get block", Err: err}
	}
	return &Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: header.Time,
		GasLimit:  header.GasLimit,
		GasUsed:   header.GasUsed,
		BaseFee:   header.BaseFee,
	}, nil
}

func (p *rpcProvider) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := p.eth.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, &ProviderError{Message: "failed to get balance", Err: err}
	}
	return balance, nil
}

func (p *rpcProvider) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := p.eth.NonceAt(ctx, address, nil)
	if err != nil {
		return 0, &ProviderError{Message: "failed to get nonce", Err: err}
	}
	return nonce, nil
}

func (p *rpcProvider) EstimateGasCost(ctx context.Context, txn *Transaction) (uint64, error) {
	msg := ethereum.CallMsg{
		From:      txn.Sender,
		To:        txn.Receiver,
		Value:     txn.Value,
		Data:      txn.Data,
		GasPrice:  txn.GasPrice,
		GasFeeCap: txn.MaxFee,
		GasTipCap: txn.MaxPriorityFee,
	}
	gas, err := p.eth.EstimateGas(ctx, msg)
	if err != nil {
		return 0, ClassifyVMError(err)
	}
	return gas, nil
}

func (p *rpcProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, translateFeeError("eth_gasPrice", err)
	}
	return price, nil
}

func (p *rpcProvider) PriorityFee(ctx context.Context) (*big.Int, error) {
	fee, err := p.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, translateFeeError("eth_maxPriorityFeePerGas", err)
	}
	return fee, nil
}

func (p *rpcProvider) BaseFee(ctx context.Context) (*big.Int, error) {
	block, err := p.GetBlock(ctx, nil)
	if err != nil {
		return nil, err
	}
	if block.BaseFee == nil {
		// Pre-EIP-1559 chain; a caller-level fee-type selection should
		// have avoided this path.
		return nil, &APINotImplementedError{API: "fee market (EIP-1559)"}
	}
	return block.BaseFee, nil
}

func (p *rpcProvider) MaxGas(ctx context.Context) (uint64, error) {
	block, err := p.GetBlock(ctx, nil)
	if err != nil {
		return 0, err
	}
	return block.GasLimit, nil
}

func (p *rpcProvider) SendTransaction(ctx context.Context, signed *types.Transaction) (*Receipt, error) {
	log.Info("Sending transaction", "hash", signed.Hash().Hex())
	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return nil, ClassifyVMError(err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(signed.ChainId()), signed)
	if err != nil {
		sender = common.Address{}
	}
	// The transaction is pending; the caller polls GetReceipt for the
	// mined record.
	return &Receipt{
		TxnHash:   signed.Hash(),
		Sender:    sender,
		Receiver:  signed.To(),
		Nonce:     signed.Nonce(),
		GasLimit:  signed.Gas(),
		Value:     signed.Value(),
		InputData: signed.Data(),
	}, nil
}

func (p *rpcProvider) GetReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	raw, err := p.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, &ProviderError{Message: "transaction not found or pending", Err: err}
	}
	txn, _, err := p.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, &ProviderError{Message: "failed to get transaction", Err: err}
	}

	sender, err := types.Sender(types.LatestSignerForChainID(txn.ChainId()), txn)
	if err != nil {
		return nil, &ProviderError{Message: "failed to recover sender", Err: err}
	}

	receipt := &Receipt{
		TxnHash:     raw.TxHash,
		Sender:      sender,
		Receiver:    txn.To(),
		Nonce:       txn.Nonce(),
		GasUsed:     raw.GasUsed,
		GasLimit:    txn.Gas(),
		GasPrice:    txn.GasPrice(),
		Status:      raw.Status,
		BlockNumber: raw.BlockNumber.Uint64(),
		Value:       txn.Value(),
		InputData:   txn.Data(),
		Logs:        raw.Logs,
	}
	if raw.ContractAddress != (common.Address{}) {
		addr := raw.ContractAddress
		receipt.ContractAddress = &addr
	}
	return receipt, nil
}

// structLogResult is the debug_traceTransaction default-tracer envelope.
type structLogResult struct {
	Gas         uint64        `json:"gas"`
	Failed      bool          `json:"failed"`
	ReturnValue string        `json:"returnValue"`
	StructLogs  []trace.Frame `json:"structLogs"`
}

func (p *rpcProvider) GetTransactionTrace(ctx context.Context, hash common.Hash) ([]trace.Frame, error) {
	var result structLogResult
	// The stack is needed to recover call targets when reconstructing a
	// call tree from opcode frames; memory and storage are not.
	config := map[string]interface{}{
		"disableStorage": true,
		"disableMemory":  true,
	}
	if err := p.rpc.CallContext(ctx, &result, "debug_traceTransaction", hash, config); err != nil {
		return nil, &ProviderError{Message: "failed to get transaction trace", Err: err}
	}
	return result.StructLogs, nil
}

func (p *rpcProvider) GetCallTrace(ctx context.Context, hash common.Hash) (*trace.GethCallFrame, error) {
	var frame trace.GethCallFrame
	config := map[string]interface{}{"tracer": "callTracer"}
	if err := p.rpc.CallContext(ctx, &frame, "debug_traceTransaction", hash, config); err != nil {
		return nil, &ProviderError{Message: "failed to get call trace", Err: err}
	}
	return &frame, nil
}

func (p *rpcProvider) GetParityTrace(ctx context.Context, hash common.Hash) ([]trace.ParityTrace, error) {
	var traces []trace.ParityTrace
	if err := p.rpc.CallContext(ctx, &traces, "trace_transaction", hash); err != nil {
		return nil, &ProviderError{Message: "failed to get parity trace", Err: err}
	}
	return traces, nil
}

func (p *rpcProvider) GetLogs(ctx context.Context, filter LogFilter) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(filter.StartBlock),
		ToBlock:   new(big.Int).SetUint64(filter.StopBlock),
		Addresses: filter.Addresses,
		Topics:    filter.Topics,
	}
	logs, err := p.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, &ProviderError{Message: "failed to get logs", Err: err}
	}
	return logs, nil
}

func translateFeeError(api string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "method not found") || strings.Contains(msg, "does not exist") {
		return &APINotImplementedError{API: api}
	}
	return &ProviderError{Message: "failed to query fee", Err: err}
}
