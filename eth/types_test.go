package eth_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nando-os/evmscope/eth"
	"github.com/nando-os/evmscope/trace"
)

func TestReceiptTrace_FetchedAtMostOnce(t *testing.T) {
	receipt := &eth.Receipt{TxnHash: common.HexToHash("0xabc")}
	frames := []trace.Frame{{Op: "STOP", Depth: 1}}

	calls := 0
	fetch := func(hash common.Hash) ([]trace.Frame, error) {
		calls++
		assert.Equal(t, receipt.TxnHash, hash)
		return frames, nil
	}

	for i := 0; i < 3; i++ {
		got, err := receipt.Trace(fetch)
		require.NoError(t, err)
		assert.Equal(t, frames, got)
	}
	assert.Equal(t, 1, calls)
}

func TestReceiptTrace_FetchErrorIsCachedToo(t *testing.T) {
	receipt := &eth.Receipt{TxnHash: common.HexToHash("0xabc")}

	calls := 0
	fetch := func(common.Hash) ([]trace.Frame, error) {
		calls++
		return nil, errors.New("tracing unavailable")
	}

	_, first := receipt.Trace(fetch)
	require.Error(t, first)
	_, second := receipt.Trace(fetch)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}
