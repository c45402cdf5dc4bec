// Package mocks contains hand-written testify mocks for the interfaces
// the eth package consumes in tests.
package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/nando-os/evmscope/eth"
	"github.com/nando-os/evmscope/trace"
)

// Provider mocks eth.Provider.
type Provider struct {
	mock.Mock
}

func (m *Provider) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Provider) Disconnect() {
	m.Called()
}

func (m *Provider) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Provider) GetBlock(ctx context.Context, number *big.Int) (*eth.Block, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eth.Block), args.Error(1)
}

func (m *Provider) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Provider) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *Provider) EstimateGasCost(ctx context.Context, txn *eth.Transaction) (uint64, error) {
	args := m.Called(ctx, txn)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *Provider) GasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Provider) PriorityFee(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Provider) BaseFee(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *Provider) MaxGas(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *Provider) SendTransaction(ctx context.Context, signed *types.Transaction) (*eth.Receipt, error) {
	args := m.Called(ctx, signed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eth.Receipt), args.Error(1)
}

func (m *Provider) GetReceipt(ctx context.Context, hash common.Hash) (*eth.Receipt, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eth.Receipt), args.Error(1)
}

func (m *Provider) GetTransactionTrace(ctx context.Context, hash common.Hash) ([]trace.Frame, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trace.Frame), args.Error(1)
}

func (m *Provider) GetCallTrace(ctx context.Context, hash common.Hash) (*trace.GethCallFrame, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trace.GethCallFrame), args.Error(1)
}

func (m *Provider) GetParityTrace(ctx context.Context, hash common.Hash) ([]trace.ParityTrace, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trace.ParityTrace), args.Error(1)
}

func (m *Provider) GetLogs(ctx context.Context, filter eth.LogFilter) ([]types.Log, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Log), args.Error(1)
}
