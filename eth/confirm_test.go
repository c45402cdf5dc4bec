package eth_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nando-os/evmscope/eth"
	"github.com/nando-os/evmscope/internal/mocks"
)

var testSender = common.HexToAddress("0x1111111111111111111111111111111111111111")

func minedReceipt(confirmations int) *eth.Receipt {
	return &eth.Receipt{
		TxnHash:               common.HexToHash("0xabc"),
		Sender:                testSender,
		Nonce:                 7,
		Status:                types.ReceiptStatusSuccessful,
		BlockNumber:           100,
		RequiredConfirmations: confirmations,
	}
}

func TestAwait_FailedReceiptReturnsImmediately(t *testing.T) {
	provider := &mocks.Provider{}
	tracker := &eth.ConfirmationTracker{Provider: provider, BlockTime: time.Hour}

	receipt := minedReceipt(2)
	receipt.Status = types.ReceiptStatusFailed

	got, err := tracker.Await(context.Background(), receipt)
	require.NoError(t, err)
	assert.Same(t, receipt, got)
	// No nonce sync, no block polling.
	provider.AssertNotCalled(t, "GetNonce", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "GetBlock", mock.Anything, mock.Anything)
}

func TestAwait_ZeroConfirmationsAfterNonceSync(t *testing.T) {
	provider := &mocks.Provider{}
	provider.On("GetNonce", mock.Anything, testSender).Return(uint64(8), nil)

	tracker := &eth.ConfirmationTracker{Provider: provider, BlockTime: time.Hour}
	got, err := tracker.Await(context.Background(), minedReceipt(0))
	require.NoError(t, err)
	assert.NotNil(t, got)
	provider.AssertNotCalled(t, "GetBlock", mock.Anything, mock.Anything)
}

func TestAwait_AlreadySatisfied(t *testing.T) {
	provider := &mocks.Provider{}
	provider.On("GetNonce", mock.Anything, testSender).Return(uint64(8), nil)
	provider.On("GetBlock", mock.Anything, mock.Anything).Return(&eth.Block{Number: 102}, nil)

	// BlockTime is an hour; if this test finishes, no polling sleep happened.
	tracker := &eth.ConfirmationTracker{Provider: provider, BlockTime: time.Hour}
	got, err := tracker.Await(context.Background(), minedReceipt(2))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestAwait_PollsUntilConfirmed(t *testing.T) {
	provider := &mocks.Provider{}
	provider.On("GetNonce", mock.Anything, testSender).Return(uint64(8), nil)
	provider.On("GetBlock", mock.Anything, mock.Anything).Return(&eth.Block{Number: 100}, nil).Once()
	provider.On("GetBlock", mock.Anything, mock.Anything).Return(&eth.Block{Number: 101}, nil).Once()
	provider.On("GetBlock", mock.Anything, mock.Anything).Return(&eth.Block{Number: 102}, nil).Once()

	tracker := &eth.ConfirmationTracker{Provider: provider, BlockTime: 2 * time.Millisecond}
	got, err := tracker.Await(context.Background(), minedReceipt(2))
	require.NoError(t, err)
	assert.NotNil(t, got)
	provider.AssertExpectations(t)
}

func TestAwait_NonceSyncTimeout(t *testing.T) {
	provider := &mocks.Provider{}
	// The provider's view never advances past the receipt's nonce.
	provider.On("GetNonce", mock.Anything, testSender).Return(uint64(7), nil)

	tracker := &eth.ConfirmationTracker{
		Provider:          provider,
		BlockTime:         time.Hour,
		NonceSyncInterval: time.Millisecond,
	}
	_, err := tracker.Await(context.Background(), minedReceipt(2))
	var timeoutErr *eth.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestAwait_ContextCancellation(t *testing.T) {
	provider := &mocks.Provider{}
	provider.On("GetNonce", mock.Anything, testSender).Return(uint64(8), nil)
	provider.On("GetBlock", mock.Anything, mock.Anything).Return(&eth.Block{Number: 100}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := &eth.ConfirmationTracker{Provider: provider, BlockTime: time.Hour}
	_, err := tracker.Await(ctx, minedReceipt(2))
	assert.ErrorIs(t, err, context.Canceled)
}
