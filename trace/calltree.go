package trace

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CallType is the EVM call mechanism used to enter a frame.
type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
	CallTypeCallCode     CallType = "CALLCODE"
	CallTypeCreate       CallType = "CREATE"
	CallTypeCreate2      CallType = "CREATE2"
	CallTypeSelfDestruct CallType = "SELFDESTRUCT"
)

// CallNode is one reconstructed call frame. Children are the calls made by
// this frame, in the exact order they occurred. A failed node's returndata
// holds the revert payload. Nodes are not mutated after construction.
type CallNode struct {
	Address    common.Address
	Caller     common.Address
	CallType   CallType
	Calldata   []byte
	Returndata []byte
	GasLimit   uint64
	GasCost    *uint64
	Value      *big.Int
	Failed     bool
	Calls      []*CallNode
}

// Selector returns the 4-byte method selector of the frame's calldata, or
// nil when the calldata is too short to carry one.
func (n *CallNode) Selector() []byte {
	if len(n.Calldata) < 4 {
		return nil
	}
	return n.Calldata[:4]
}

func (n *CallNode) String() string {
	s := string(n.CallType) + ": <" + n.Address.Hex() + ">"
	if n.GasCost != nil {
		s += fmt.Sprintf(" [%d gas]", *n.GasCost)
	}
	return s
}

// CallTreeFromGethTrace converts a geth callTracer frame into a CallNode
// graph. The callTracer result is already nested, so this is a direct
// recursive mapping.
func CallTreeFromGethTrace(frame *GethCallFrame) *CallNode {
	node := &CallNode{
		Caller:     frame.From,
		CallType:   normalizeCallType(frame.Type),
		Calldata:   frame.Input,
		Returndata: frame.Output,
		GasLimit:   uint64(frame.Gas),
		Failed:     frame.Error != "",
	}
	if frame.To != nil {
		node.Address = *frame.To
	}
	if frame.Value != nil {
		node.Value = frame.Value.ToInt()
	}
	gasUsed := uint64(frame.GasUsed)
	node.GasCost = &gasUsed
	for i := range frame.Calls {
		node.Calls = append(node.Calls, CallTreeFromGethTrace(&frame.Calls[i]))
	}
	return node
}

// CallTreeFromParityTrace reconstructs the call tree from a parity-style
// flat trace list. Entries arrive in execution order; nesting is recovered
// from each entry's TraceAddress path, where the entry at path p is a child
// of the entry at path p[:len(p)-1].
func CallTreeFromParityTrace(traces []ParityTrace) (*CallNode, error) {
	if len(traces) == 0 {
		return nil, fmt.Errorf("empty parity trace")
	}

	byPath := make(map[string]*CallNode, len(traces))
	var root *CallNode
	for i := range traces {
		t := &traces[i]
		node := parityNode(t)
		path := pathKey(t.TraceAddress)
		byPath[path] = node

		if len(t.TraceAddress) == 0 {
			if root != nil {
				return nil, fmt.Errorf("parity trace has multiple roots")
			}
			root = node
			continue
		}
		parent, ok := byPath[pathKey(t.TraceAddress[:len(t.TraceAddress)-1])]
		if !ok {
			return nil, fmt.Errorf("parity trace entry %v arrived before its parent", t.TraceAddress)
		}
		parent.Calls = append(parent.Calls, node)
	}
	if root == nil {
		return nil, fmt.Errorf("parity trace has no root entry")
	}
	return root, nil
}

func parityNode(t *ParityTrace) *CallNode {
	node := &CallNode{
		Caller:   t.Action.From,
		GasLimit: uint64(t.Action.Gas),
		Failed:   t.Error != "",
	}
	switch strings.ToLower(t.Type) {
	case "create":
		node.CallType = CallTypeCreate
		node.Calldata = t.Action.Init
		if t.Result != nil && t.Result.Address != nil {
			node.Address = *t.Result.Address
		}
	case "suicide":
		node.CallType = CallTypeSelfDestruct
	default:
		node.CallType = normalizeCallType(t.Action.CallType)
		node.Calldata = t.Action.Input
		if t.Action.To != nil {
			node.Address = *t.Action.To
		}
	}
	if t.Action.Value != nil {
		node.Value = t.Action.Value.ToInt()
	}
	if t.Result != nil {
		gasUsed := uint64(t.Result.GasUsed)
		node.GasCost = &gasUsed
		if len(node.Returndata) == 0 {
			node.Returndata = t.Result.Output
		}
	}
	return node
}

func normalizeCallType(s string) CallType {
	switch strings.ToUpper(s) {
	case "DELEGATECALL":
		return CallTypeDelegateCall
	case "STATICCALL":
		return CallTypeStaticCall
	case "CALLCODE":
		return CallTypeCallCode
	case "CREATE":
		return CallTypeCreate
	case "CREATE2":
		return CallTypeCreate2
	case "SELFDESTRUCT", "SUICIDE":
		return CallTypeSelfDestruct
	default:
		return CallTypeCall
	}
}

func pathKey(path []int) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ".")
}
