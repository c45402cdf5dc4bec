package eth_test

import (
	"context"
	"errors"
	"math/big"
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

func submitNetwork() *eth.NetworkConfig {
	return &eth.NetworkConfig{
		ChainID:                      1,
		BlockTime:                    time.Millisecond,
		RequiredConfirmations:        2,
		GasLimit:                     eth.GasAuto,
		TransactionAcceptanceTimeout: time.Second,
	}
}

func TestSubmit_FullPipeline(t *testing.T) {
	account, err := eth.NewAccount(devPrivateKey, "main")
	require.NoError(t, err)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	txn := &eth.Transaction{
		Sender:                account.Address,
		Receiver:              &to,
		Value:                 big.NewInt(1000),
		Type:                  eth.LegacyTxType,
		GasPrice:              big.NewInt(50),
		Gas:                   "21000",
		RequiredConfirmations: intPtr(0),
	}

	mined := &eth.Receipt{
		TxnHash:     common.HexToHash("0xabc"),
		Sender:      account.Address,
		Nonce:       7,
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: 100,
	}

	provider := &mocks.Provider{}
	// Fills the missing nonce, then reports it advanced during nonce sync.
	provider.On("GetNonce", mock.Anything, account.Address).Return(uint64(7), nil).Once()
	provider.On("SendTransaction", mock.Anything, mock.Anything).Return(&eth.Receipt{TxnHash: mined.TxnHash}, nil)
	provider.On("GetReceipt", mock.Anything, mined.TxnHash).Return(mined, nil)
	provider.On("GetNonce", mock.Anything, account.Address).Return(uint64(8), nil)

	submitter := &eth.Submitter{Provider: provider, Network: submitNetwork(), Signer: account}
	receipt, err := submitter.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, mined.TxnHash, receipt.TxnHash)
	assert.Equal(t, 0, receipt.RequiredConfirmations)
	require.NotNil(t, txn.Nonce)
	assert.Equal(t, uint64(7), *txn.Nonce)
	provider.AssertExpectations(t)
}

func TestSubmit_ReadOnlySignerRefused(t *testing.T) {
	readOnly := &eth.Account{Address: common.HexToAddress(devAddress)}
	txn := &eth.Transaction{
		Sender:                readOnly.Address,
		Type:                  eth.LegacyTxType,
		GasPrice:              big.NewInt(50),
		Gas:                   "21000",
		Nonce:                 uint64Ptr(7),
		RequiredConfirmations: intPtr(0),
	}

	submitter := &eth.Submitter{Provider: &mocks.Provider{}, Network: submitNetwork(), Signer: readOnly}
	_, err := submitter.Submit(context.Background(), txn)

	var sigErr *eth.SignatureError
	assert.ErrorAs(t, err, &sigErr)
}

func TestSubmit_PreparationFailureStopsPipeline(t *testing.T) {
	account, err := eth.NewAccount(devPrivateKey, "main")
	require.NoError(t, err)

	provider := &mocks.Provider{}
	txn := &eth.Transaction{
		Sender:   account.Address,
		Type:     eth.LegacyTxType,
		GasPrice: big.NewInt(50),
		Gas:      "bogus",
	}

	submitter := &eth.Submitter{Provider: provider, Network: submitNetwork(), Signer: account}
	_, err = submitter.Submit(context.Background(), txn)

	var txnErr *eth.TransactionError
	require.ErrorAs(t, err, &txnErr)
	provider.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestSubmit_ReceiptTimeout(t *testing.T) {
	account, err := eth.NewAccount(devPrivateKey, "main")
	require.NoError(t, err)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	txn := &eth.Transaction{
		Sender:                account.Address,
		Receiver:              &to,
		Type:                  eth.LegacyTxType,
		GasPrice:              big.NewInt(50),
		Gas:                   "21000",
		Nonce:                 uint64Ptr(7),
		RequiredConfirmations: intPtr(0),
	}

	provider := &mocks.Provider{}
	provider.On("SendTransaction", mock.Anything, mock.Anything).Return(&eth.Receipt{TxnHash: common.HexToHash("0xabc")}, nil)
	provider.On("GetReceipt", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))

	network := submitNetwork()
	network.TransactionAcceptanceTimeout = time.Millisecond

	submitter := &eth.Submitter{Provider: provider, Network: network, Signer: account}
	_, err = submitter.Submit(context.Background(), txn)

	var timeoutErr *eth.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}
