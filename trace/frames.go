package trace

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// RootCall describes the outermost call of an opcode-level trace. The
// frame stream only covers execution inside that call, so its identity,
// calldata, value and overall gas come from the transaction record.
type RootCall struct {
	Address  common.Address
	Caller   common.Address
	Calldata []byte
	Value    *big.Int
	GasLimit uint64
	GasCost  uint64
	Failed   bool
}

// openFrame tracks one call currently executing while walking the
// frame stream.
type openFrame struct {
	node     *CallNode
	depth    int
	entryGas uint64
	lastGas  uint64
	lastCost uint64
}

// CallTreeFromFrames reconstructs the call tree from an opcode-level
// frame stream. Sub-calls open where a call-family opcode raises the
// depth and close where the depth falls back; targets and transferred
// values are read off the operand stack. Sub-call gas costs derive from
// the gas counter at entry and exit, so they are the EVM's own
// accounting rather than the requested allowance. Frames carry no
// calldata, so sub-call nodes render generically.
func CallTreeFromFrames(root RootCall, frames []Frame) *CallNode {
	rootGas := root.GasCost
	node := &CallNode{
		Address:  root.Address,
		Caller:   root.Caller,
		CallType: CallTypeCall,
		Calldata: root.Calldata,
		Value:    root.Value,
		GasLimit: root.GasLimit,
		GasCost:  &rootGas,
		Failed:   root.Failed,
	}
	if len(frames) == 0 {
		return node
	}

	open := []*openFrame{{node: node, depth: frames[0].Depth, entryGas: root.GasLimit}}
	for i := range frames {
		f := &frames[i]

		for len(open) > 1 && f.Depth < open[len(open)-1].depth {
			closeFrame(open[len(open)-1])
			open = open[:len(open)-1]
		}
		current := open[len(open)-1]
		current.lastGas = f.Gas
		current.lastCost = f.GasCost

		switch f.Op {
		case "REVERT", "INVALID":
			current.node.Failed = true
		case "SELFDESTRUCT":
			cost := f.GasCost
			current.node.Calls = append(current.node.Calls, &CallNode{
				Caller:   current.node.Address,
				Address:  stackAddress(f.Stack, 1),
				CallType: CallTypeSelfDestruct,
				GasCost:  &cost,
			})
		case "CALL", "CALLCODE", "DELEGATECALL", "STATICCALL", "CREATE", "CREATE2":
			child := &CallNode{
				Caller:   current.node.Address,
				CallType: normalizeCallType(f.Op),
			}
			switch f.Op {
			case "CALL", "CALLCODE":
				child.Address = stackAddress(f.Stack, 2)
				child.Value = stackValue(f.Stack, 3)
			case "DELEGATECALL", "STATICCALL":
				child.Address = stackAddress(f.Stack, 2)
			case "CREATE", "CREATE2":
				// The created address only appears on the stack after the
				// init frame returns; the node stays anonymous.
				child.Value = stackValue(f.Stack, 1)
			}
			current.node.Calls = append(current.node.Calls, child)

			if i+1 < len(frames) && frames[i+1].Depth > f.Depth {
				entry := frames[i+1].Gas
				child.GasLimit = entry
				open = append(open, &openFrame{
					node:     child,
					depth:    frames[i+1].Depth,
					entryGas: entry,
					lastGas:  entry,
				})
			} else {
				// The callee produced no frames (precompile, or the call
				// failed before executing); the opcode's own cost is all
				// there is.
				cost := f.GasCost
				child.GasCost = &cost
			}
		}
	}

	for len(open) > 1 {
		closeFrame(open[len(open)-1])
		open = open[:len(open)-1]
	}
	return node
}

// closeFrame settles a sub-call's gas cost from the gas counter at entry
// and at its final frame.
func closeFrame(f *openFrame) {
	used := f.entryGas - f.lastGas + f.lastCost
	f.node.GasCost = &used
}

// stackAddress reads the word n positions from the top of the operand
// stack as an address. Out-of-range reads yield the zero address.
func stackAddress(stack []string, n int) common.Address {
	if n < 1 || len(stack) < n {
		return common.Address{}
	}
	return common.HexToAddress(stack[len(stack)-n])
}

// stackValue reads the word n positions from the top of the operand
// stack as an integer.
func stackValue(stack []string, n int) *big.Int {
	if n < 1 || len(stack) < n {
		return nil
	}
	value, ok := new(big.Int).SetString(strings.TrimPrefix(stack[len(stack)-n], "0x"), 16)
	if !ok {
		return nil
	}
	return value
}
