package trace

import (
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TransferLabel is the contract identity assigned to plain value transfers
// between locally managed accounts.
const TransferLabel = "Transferring ETH"

// UnknownMethodLabel stands in when a known contract's method cannot be
// identified at all.
const UnknownMethodLabel = "<UnknownMethod>"

// GasReport buckets observed gas costs per contract and method. The inner
// slice holds one entry per observed call; consumers must treat it as a
// multiset (merge order is not significant).
type GasReport map[string]map[string][]uint64

// MergeReports folds reports together: matching contract/method keys
// concatenate their gas sequences. The merge is associative and
// commutative over the per-key multisets.
func MergeReports(reports ...GasReport) GasReport {
	merged := make(GasReport)
	for _, report := range reports {
		for contractID, methods := range report {
			bucket, ok := merged[contractID]
			if !ok {
				bucket = make(map[string][]uint64, len(methods))
				merged[contractID] = bucket
			}
			for methodID, gases := range methods {
				bucket[methodID] = append(bucket[methodID], gases...)
			}
		}
	}
	return merged
}

// ExclusionPath filters gas report entries with glob patterns. An empty
// MethodName excludes a whole contract; otherwise only matching methods of
// matching contracts are excluded.
type ExclusionPath struct {
	ContractName string
	MethodName   string
}

// ParseExclusion parses "Contract" or "Contract.method" exclusion syntax.
func ParseExclusion(raw string) (ExclusionPath, error) {
	if raw == "" {
		return ExclusionPath{}, fmt.Errorf("empty exclusion")
	}
	parts := strings.SplitN(raw, ".", 2)
	exclusion := ExclusionPath{ContractName: parts[0]}
	if len(parts) == 2 {
		exclusion.MethodName = parts[1]
	}
	return exclusion, nil
}

// GasAnalyzer walks call trees and buckets gas costs per contract and
// method, resolving identities against the injected resolvers.
type GasAnalyzer struct {
	Resolver ContractResolver
	Accounts AccountResolver
}

// CreateGasReport aggregates the tree rooted at node, post-order. A
// contract-level exclusion drops the node's own contribution but still
// recurses so children report their own usage; a method-level exclusion
// drops only that method. Child reports always merge into the result.
func (a *GasAnalyzer) CreateGasReport(node *CallNode, exclusions []ExclusionPath) GasReport {
	contract, known := (*Contract)(nil), false
	if a.Resolver != nil {
		contract, known = a.Resolver.Lookup(node.Address)
	}
	contractID := a.contractID(node.Address, contract, known)
	selector := node.Selector()

	for _, exclusion := range exclusions {
		if exclusion.MethodName != "" {
			// Method-level excludes are handled below, even when the
			// contract is also specified.
			continue
		}
		if matchGlob(exclusion.ContractName, contractID) {
			return a.childReports(node, exclusions)
		}
	}

	var methodID string
	switch {
	case contractID == TransferLabel:
		alias := node.Address.Hex()
		if a.Accounts != nil {
			if known, ok := a.Accounts.AccountAlias(node.Address); ok && known != "" {
				alias = known
			}
		}
		methodID = "to:" + alias
	case known:
		methodID = methodIdentity(contract, selector)
		for _, exclusion := range exclusions {
			if exclusion.MethodName == "" {
				continue
			}
			if !matchGlob(exclusion.ContractName, contractID) {
				continue
			}
			if matchGlob(exclusion.MethodName, methodID) {
				return a.childReports(node, exclusions)
			}
		}
	case selector != nil:
		methodID = "0x" + hex.EncodeToString(selector)
	}

	report := make(GasReport)
	if methodID != "" {
		gases := []uint64{}
		if node.GasCost != nil {
			gases = append(gases, *node.GasCost)
		}
		report[contractID] = map[string][]uint64{methodID: gases}
	}
	return MergeReports(report, a.childReports(node, exclusions))
}

func (a *GasAnalyzer) childReports(node *CallNode, exclusions []ExclusionPath) GasReport {
	reports := make([]GasReport, 0, len(node.Calls))
	for _, sub := range node.Calls {
		reports = append(reports, a.CreateGasReport(sub, exclusions))
	}
	return MergeReports(reports...)
}

func (a *GasAnalyzer) contractID(address common.Address, contract *Contract, known bool) string {
	if known && contract.Name != "" {
		return contract.Name
	}
	if a.Accounts != nil {
		if _, ok := a.Accounts.AccountAlias(address); ok {
			return TransferLabel
		}
	}
	return address.Hex()
}

func methodIdentity(contract *Contract, selector []byte) string {
	if method, ok := contract.MethodBySelector(selector); ok && method.Name != "" {
		return method.Name
	}
	if selector != nil {
		return "0x" + hex.EncodeToString(selector)
	}
	return UnknownMethodLabel
}

// matchGlob applies fnmatch-style matching; a malformed pattern matches
// nothing.
func matchGlob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
