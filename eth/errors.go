package eth

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TransactionError rejects an ill-formed transaction before submission.
type TransactionError struct {
	Message string
}

func (e *TransactionError) Error() string { return e.Message }

// SignatureError signals that a signing capability refused or was unable
// to sign, such as for read-only accounts.
type SignatureError struct {
	Message string
}

func (e *SignatureError) Error() string { return e.Message }

// TimeoutError signals a bounded wait that elapsed without progress. The
// underlying transaction or process is not retried.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

// ProviderError carries a raw provider-level failure, such as a malformed
// RPC response.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// APINotImplementedError signals a provider capability the active network
// does not offer, such as fee-market queries on a pre-EIP-1559 chain.
type APINotImplementedError struct {
	API string
}

func (e *APINotImplementedError) Error() string {
	return "provider does not implement " + e.API
}

// VirtualMachineError represents a fault raised by the EVM during
// execution.
type VirtualMachineError struct {
	Message string
	Code    int
}

func (e *VirtualMachineError) Error() string { return e.Message }

// ContractLogicError is the revert/assert subtype of VirtualMachineError.
// It carries the revert message when one was supplied so test frameworks
// can assert on expected reverts.
type ContractLogicError struct {
	VirtualMachineError
	RevertMessage string
}

// Matches reports whether the revert message contains expected. Substring
// matching is deliberate: it is the least surprising contract for test
// assertions against human-written revert strings.
func (e *ContractLogicError) Matches(expected string) bool {
	return strings.Contains(e.RevertMessage, expected)
}

// OutOfGasError is raised when execution exhausts its gas allowance.
type OutOfGasError struct {
	VirtualMachineError
}

func NewOutOfGasError() *OutOfGasError {
	return &OutOfGasError{VirtualMachineError{Message: "out of gas"}}
}

// The 4-byte selector of Error(string), the solidity revert-reason shape.
const revertSelector = "08c379a0"

const revertPrefix = "execution reverted"

// ClassifyVMError translates a raw provider error into the virtual
// machine error taxonomy: contract reverts become ContractLogicError with
// the revert message recovered from the error text or revert data,
// out-of-gas becomes OutOfGasError, anything else a generic
// VirtualMachineError.
func ClassifyVMError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()

	if strings.Contains(message, "out of gas") {
		return NewOutOfGasError()
	}

	if strings.Contains(message, revertPrefix) {
		reason := ""
		if idx := strings.Index(message, revertPrefix+": "); idx >= 0 {
			reason = message[idx+len(revertPrefix)+2:]
		}
		if reason == "" {
			if data, ok := errorData(err); ok {
				reason = DecodeRevertReason(data)
			}
		}
		logicErr := &ContractLogicError{RevertMessage: reason}
		if reason != "" {
			logicErr.Message = "execution reverted: " + reason
		} else {
			logicErr.Message = "execution reverted"
		}
		return logicErr
	}

	return &VirtualMachineError{Message: message}
}

// errorData extracts hex-encoded revert data from providers that attach it
// (the go-ethereum rpc DataError shape).
func errorData(err error) ([]byte, bool) {
	de, ok := err.(interface{ ErrorData() interface{} })
	if !ok {
		return nil, false
	}
	raw, ok := de.ErrorData().(string)
	if !ok {
		return nil, false
	}
	raw = strings.TrimPrefix(raw, "0x")
	data, decodeErr := hex.DecodeString(raw)
	if decodeErr != nil {
		return nil, false
	}
	return data, true
}

// DecodeRevertReason decodes an Error(string) revert payload into its
// message. Returns the empty string for any other payload shape.
func DecodeRevertReason(data []byte) string {
	if len(data) < 4 || hex.EncodeToString(data[:4]) != revertSelector {
		return ""
	}
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return ""
	}
	values, err := abi.Arguments{{Type: stringType}}.UnpackValues(data[4:])
	if err != nil || len(values) != 1 {
		return ""
	}
	reason, _ := values[0].(string)
	return reason
}
