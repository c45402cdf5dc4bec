package trace

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Frame is a single EVM execution step as returned by the provider's
// opcode-level tracer (one entry of debug_traceTransaction structLogs).
// Frames arrive as a potentially very long ordered sequence; call-tree
// reconstruction consumes them in one pass without retaining them.
// Stack holds hex-encoded words, bottom to top.
type Frame struct {
	PC      uint64   `json:"pc"`
	Op      string   `json:"op"`
	Gas     uint64   `json:"gas"`
	GasCost uint64   `json:"gasCost"`
	Depth   int      `json:"depth"`
	Stack   []string `json:"stack,omitempty"`
}

// GethCallFrame is one frame of a geth callTracer result: a nested tree of
// call frames, each carrying its own sub-calls in execution order.
type GethCallFrame struct {
	Type         string          `json:"type"`
	From         common.Address  `json:"from"`
	To           *common.Address `json:"to,omitempty"`
	Value        *hexutil.Big    `json:"value,omitempty"`
	Gas          hexutil.Uint64  `json:"gas"`
	GasUsed      hexutil.Uint64  `json:"gasUsed"`
	Input        hexutil.Bytes   `json:"input"`
	Output       hexutil.Bytes   `json:"output,omitempty"`
	Error        string          `json:"error,omitempty"`
	RevertReason string          `json:"revertReason,omitempty"`
	Calls        []GethCallFrame `json:"calls,omitempty"`
}

// ParityTrace is one entry of a parity-style trace_transaction result: a
// flat list where nesting is encoded by TraceAddress paths.
type ParityTrace struct {
	Action       ParityAction  `json:"action"`
	Result       *ParityResult `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
	Subtraces    int           `json:"subtraces"`
	TraceAddress []int         `json:"traceAddress"`
	Type         string        `json:"type"`
}

type ParityAction struct {
	CallType string          `json:"callType,omitempty"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	Input    hexutil.Bytes   `json:"input,omitempty"`
	Init     hexutil.Bytes   `json:"init,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
}

type ParityResult struct {
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Output  hexutil.Bytes   `json:"output,omitempty"`
	Code    hexutil.Bytes   `json:"code,omitempty"`
	Address *common.Address `json:"address,omitempty"`
}
