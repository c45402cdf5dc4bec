package trace

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/xlab/treeprint"
)

// DisplayNode is the rendering-ready shape of a call frame, kept separate
// from the CallNode data model so each can be tested on its own.
type DisplayNode struct {
	Label    string
	Children []*DisplayNode
}

// Tree converts the display tree into a printable treeprint tree.
func (d *DisplayNode) Tree() treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(d.Label)
	d.attach(tree)
	return tree
}

func (d *DisplayNode) attach(tree treeprint.Tree) {
	for _, child := range d.Children {
		branch := tree.AddBranch(child.Label)
		child.attach(branch)
	}
}

func (d *DisplayNode) String() string {
	return d.Tree().String()
}

// Renderer builds display trees from call trees, resolving contract and
// method identities against the injected resolver.
type Renderer struct {
	Resolver ContractResolver
	Origin   common.Address
	Verbose  bool
}

// Render produces the display tree for a call frame. A decode failure at
// any single node degrades to placeholders at that node only; siblings and
// ancestors render normally. Nodes with unresolved contracts still render.
func (r *Renderer) Render(node *CallNode) *DisplayNode {
	// Calls into the reserved precompile range are noise: splice their
	// children straight into the parent instead of rendering the frame.
	if id, ok := precompileID(node.Address); ok {
		children := make([]*DisplayNode, 0, len(node.Calls))
		for _, sub := range node.Calls {
			children = append(children, r.Render(sub))
		}
		if len(children) == 1 {
			return children[0]
		}
		return &DisplayNode{Label: strconv.FormatUint(id, 10), Children: children}
	}

	display := &DisplayNode{Label: r.label(node)}
	for _, sub := range node.Calls {
		display.Children = append(display.Children, r.Render(sub))
	}
	return display
}

func (r *Renderer) label(node *CallNode) string {
	label := r.callLabel(node)
	if annotation, ok := valueAnnotation(node.Value); ok {
		label += annotation
	}
	return label
}

func (r *Renderer) callLabel(node *CallNode) string {
	selector := node.Selector()
	contract, known := (*Contract)(nil), false
	if r.Resolver != nil {
		contract, known = r.Resolver.Lookup(node.Address)
	}
	if !known {
		return r.defaultLabel(node, node.Address.Hex())
	}

	method, resolved := contract.MethodBySelector(selector)
	if !resolved {
		// Known by name but the selector is unresolved, such as an
		// unsupported proxy or a fallback call.
		name := contract.DisplayName()
		if name == "" {
			name = node.Address.Hex()
		}
		return r.defaultLabel(node, name)
	}

	formatter := &Formatter{Resolver: r.Resolver, Origin: r.Origin}
	arguments := DecodeCalldata(method, node.Calldata[4:])

	var returnValue interface{}
	if !node.Failed {
		decoded, err := DecodeReturndata(method, node.Returndata)
		if err != nil {
			returnValue = Placeholder
		} else {
			returnValue = decoded
		}
	}

	contractID := contract.DisplayName()
	if contractID == "" {
		contractID = node.Address.Hex()
	}
	methodID := method.Name
	if methodID == "" {
		methodID = "<0x" + hex.EncodeToString(selector) + ">"
	}

	label := r.methodSignature(node, contractID, methodID, method, arguments, formatter, returnValue)
	if node.GasCost != nil {
		label += fmt.Sprintf(" [%d gas]", *node.GasCost)
	}
	if r.Verbose {
		label += " " + r.verboseBlock(node)
	}
	return label
}

func (r *Renderer) methodSignature(
	node *CallNode,
	contractID, methodID string,
	method *abi.Method,
	arguments map[string]interface{},
	formatter *Formatter,
	returnValue interface{},
) string {
	callPath := contractID + "." + methodID
	if node.CallType == CallTypeDelegateCall {
		callPath = "(delegate) " + callPath
	}

	signature := callPath + formatArguments(method, arguments, formatter)
	if returnStr, ok := formatReturn(formatter, returnValue); ok {
		signature += " -> " + returnStr
	}
	return signature
}

// defaultLabel is the generic representation used when no richer
// resolution is possible: call type, target, selector and gas.
func (r *Renderer) defaultLabel(node *CallNode, target string) string {
	var label string
	switch node.CallType {
	case CallTypeCreate, CallTypeCreate2:
		label = fmt.Sprintf("%s: %s", node.CallType, target)
	default:
		selector := node.Selector()
		if selector != nil {
			label = fmt.Sprintf("%s: %s.<0x%s>", node.CallType, target, hex.EncodeToString(selector))
		} else {
			label = fmt.Sprintf("%s: %s", node.CallType, target)
		}
	}
	if node.GasCost != nil {
		label += fmt.Sprintf(" [%d gas]", *node.GasCost)
	}
	if r.Verbose {
		label += " " + r.verboseBlock(node)
	}
	return label
}

func (r *Renderer) verboseBlock(node *CallNode) string {
	extra := map[string]interface{}{
		"address":   node.Address.Hex(),
		"value":     bigOrZero(node.Value).String(),
		"gas_limit": node.GasLimit,
		"call_type": string(node.CallType),
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return ""
	}
	return string(raw)
}

func formatArguments(method *abi.Method, arguments map[string]interface{}, formatter *Formatter) string {
	if len(arguments) == 0 {
		return "()"
	}
	parts := make([]string, 0, len(method.Inputs))
	for i, input := range method.Inputs {
		name := inputName(input, i)
		value := formatter.Format(arguments[name])
		if input.Name != "" {
			parts = append(parts, fmt.Sprintf("%s=%v", name, value))
		} else {
			parts = append(parts, fmt.Sprintf("%v", value))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatReturn(formatter *Formatter, returnValue interface{}) (string, bool) {
	if returnValue == nil {
		return "", false
	}
	formatted := formatter.Format(returnValue)
	switch v := formatted.(type) {
	case nil:
		return "", false
	case []interface{}:
		if len(v) == 0 {
			return "", false
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return "[" + strings.Join(parts, ", ") + "]", true
	case map[string]interface{}:
		if len(v) == 0 {
			return "", false
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, v[k])
		}
		return "(" + strings.Join(parts, ", ") + ")", true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// valueAnnotation renders a nonzero transferred value at 18-decimal
// scaling, but only when it survives rounding at 8 decimal places.
func valueAnnotation(value *big.Int) (string, bool) {
	if value == nil || value.Sign() == 0 {
		return "", false
	}
	scaled, _ := new(big.Float).Quo(new(big.Float).SetInt(value), big.NewFloat(1e18)).Float64()
	rounded := math.Round(scaled*1e8) / 1e8
	if rounded == 0 {
		return "", false
	}
	return fmt.Sprintf(" [%s value]", strconv.FormatFloat(rounded, 'f', -1, 64)), true
}

// precompileID reports whether the address falls in the reserved EVM
// precompile range [1,9].
func precompileID(address common.Address) (uint64, bool) {
	n := new(big.Int).SetBytes(address.Bytes())
	if n.IsUint64() {
		id := n.Uint64()
		if id >= 1 && id <= 9 {
			return id, true
		}
	}
	return 0, false
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
