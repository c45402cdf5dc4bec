package trace

import (
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Placeholder substitutes any argument or return value that could not be
// decoded. Trace rendering must never block on a single malformed frame.
const Placeholder = "<?>"

// DecodingError signals returndata that could not be decoded against a
// method's output signature. Callers replace the value with Placeholder at
// that call site only; the error must never abort a broader operation.
type DecodingError struct {
	Message string
	Err     error
}

func (e *DecodingError) Error() string {
	if e.Message != "" {
		return "decoding error: " + e.Message
	}
	return "decoding error: " + e.Err.Error()
}

func (e *DecodingError) Unwrap() error { return e.Err }

// DecodeCalldata decodes raw calldata (selector already stripped) against
// the method's input signature. The result holds one entry per declared
// input, keyed by name or by positional index for unnamed inputs. On
// insufficient or malformed data every input maps to Placeholder; this
// function never fails.
func DecodeCalldata(method *abi.Method, data []byte) map[string]interface{} {
	arguments := make(map[string]interface{}, len(method.Inputs))
	values, err := method.Inputs.UnpackValues(data)
	if err != nil || len(values) != len(method.Inputs) {
		for i, input := range method.Inputs {
			arguments[inputName(input, i)] = Placeholder
		}
		return arguments
	}
	for i, input := range method.Inputs {
		arguments[inputName(input, i)] = values[i]
	}
	return arguments
}

// DecodeReturndata decodes raw returndata against the method's output
// signature, in declared order. A single-value result unwraps from the
// slice. Empty returndata decodes to nil. Malformed data surfaces a
// *DecodingError for the caller to recover from locally.
func DecodeReturndata(method *abi.Method, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	values, err := method.Outputs.UnpackValues(data)
	if err != nil {
		return nil, &DecodingError{Message: "could not decode return data for " + method.Name, Err: err}
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

func inputName(input abi.Argument, index int) string {
	if input.Name != "" {
		return input.Name
	}
	return strconv.Itoa(index)
}
