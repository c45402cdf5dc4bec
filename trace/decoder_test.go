package trace

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getReserves","inputs":[],"outputs":[{"name":"reserve0","type":"uint256"},{"name":"reserve1","type":"uint256"}]},
	{"type":"function","name":"anonymousArgs","inputs":[{"name":"","type":"uint256"},{"name":"","type":"bool"}],"outputs":[]}
]`

func parseTestABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)
	return parsed
}

func TestDecodeCalldata_NamedInputs(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["transfer"]

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	amount := big.NewInt(100)
	data, err := method.Inputs.Pack(to, amount)
	require.NoError(t, err)

	args := DecodeCalldata(&method, data)
	assert.Len(t, args, 2)
	assert.Equal(t, to, args["to"])
	assert.Equal(t, amount, args["amount"])
}

func TestDecodeCalldata_UnnamedInputsKeyedByIndex(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["anonymousArgs"]

	data, err := method.Inputs.Pack(big.NewInt(7), true)
	require.NoError(t, err)

	args := DecodeCalldata(&method, data)
	assert.Equal(t, big.NewInt(7), args["0"])
	assert.Equal(t, true, args["1"])
}

func TestDecodeCalldata_MalformedDataDegradesToPlaceholders(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["transfer"]

	args := DecodeCalldata(&method, []byte{0x01, 0x02})
	assert.Len(t, args, 2)
	assert.Equal(t, Placeholder, args["to"])
	assert.Equal(t, Placeholder, args["amount"])
}

func TestDecodeReturndata_SingleValueUnwraps(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["transfer"]

	data, err := method.Outputs.Pack(true)
	require.NoError(t, err)

	value, err := DecodeReturndata(&method, data)
	assert.NoError(t, err)
	assert.Equal(t, true, value)
}

func TestDecodeReturndata_MultipleValuesStayOrdered(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["getReserves"]

	data, err := method.Outputs.Pack(big.NewInt(10), big.NewInt(20))
	require.NoError(t, err)

	value, err := DecodeReturndata(&method, data)
	assert.NoError(t, err)
	values, ok := value.([]interface{})
	require.True(t, ok)
	require.Len(t, values, 2)
	assert.Equal(t, big.NewInt(10), values[0])
	assert.Equal(t, big.NewInt(20), values[1])
}

func TestDecodeReturndata_EmptyIsNil(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["transfer"]

	value, err := DecodeReturndata(&method, nil)
	assert.NoError(t, err)
	assert.Nil(t, value)
}

func TestDecodeReturndata_MalformedDataIsDecodingError(t *testing.T) {
	parsed := parseTestABI(t)
	method := parsed.Methods["getReserves"]

	_, err := DecodeReturndata(&method, []byte{0xde, 0xad})
	require.Error(t, err)
	var decodingErr *DecodingError
	assert.ErrorAs(t, err, &decodingErr)
	assert.Contains(t, decodingErr.Error(), "getReserves")
}
