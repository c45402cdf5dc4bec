package eth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nando-os/evmscope/eth"
	"github.com/nando-os/evmscope/internal/mocks"
)

func TestBlockRanges(t *testing.T) {
	ranges := eth.BlockRanges(0, 249, 100)
	assert.Equal(t, []eth.BlockRange{
		{Start: 0, Stop: 99},
		{Start: 100, Stop: 199},
		{Start: 200, Stop: 249},
	}, ranges)
}

func TestBlockRanges_SingleBlock(t *testing.T) {
	ranges := eth.BlockRanges(42, 42, 100)
	assert.Equal(t, []eth.BlockRange{{Start: 42, Stop: 42}}, ranges)
}

func TestBlockRanges_ExactPageBoundary(t *testing.T) {
	ranges := eth.BlockRanges(0, 199, 100)
	assert.Equal(t, []eth.BlockRange{
		{Start: 0, Stop: 99},
		{Start: 100, Stop: 199},
	}, ranges)
}

func TestFetchLogs_StitchesPagesInBlockOrder(t *testing.T) {
	provider := &mocks.Provider{}
	pageFor := func(start, stop uint64, blocks ...uint64) {
		logs := make([]types.Log, len(blocks))
		for i, b := range blocks {
			logs[i] = types.Log{BlockNumber: b}
		}
		provider.On("GetLogs", mock.Anything, mock.MatchedBy(func(f eth.LogFilter) bool {
			return f.StartBlock == start && f.StopBlock == stop
		})).Return(logs, nil)
	}
	pageFor(0, 99, 5, 90)
	pageFor(100, 199, 150)
	pageFor(200, 249, 201, 240)

	filter := eth.LogFilter{StartBlock: 0, StopBlock: 249}
	logs, err := eth.FetchLogs(context.Background(), provider, filter, 100, 2)
	require.NoError(t, err)

	got := make([]uint64, len(logs))
	for i, l := range logs {
		got[i] = l.BlockNumber
	}
	assert.Equal(t, []uint64{5, 90, 150, 201, 240}, got)
}

func TestFetchLogs_PageErrorFailsFetch(t *testing.T) {
	provider := &mocks.Provider{}
	provider.On("GetLogs", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	filter := eth.LogFilter{StartBlock: 0, StopBlock: 500}
	_, err := eth.FetchLogs(context.Background(), provider, filter, 100, 4)
	assert.Error(t, err)
}
