package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// Contract is the resolved identity of an on-chain address: a name and,
// when available, the ABI used to resolve selectors and decode data.
// Symbol is a distinguishing token symbol; display surfaces may prefer it,
// gas reports never do (project names are unique, symbols are not).
type Contract struct {
	Name   string
	Symbol string
	ABI    abi.ABI
}

// DisplayName returns the symbol when one is known, else the name.
func (c *Contract) DisplayName() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Name
}

// MethodBySelector resolves a 4-byte selector against the contract's
// method table.
func (c *Contract) MethodBySelector(selector []byte) (*abi.Method, bool) {
	if len(selector) != 4 {
		return nil, false
	}
	method, err := c.ABI.MethodById(selector)
	if err != nil || method == nil {
		return nil, false
	}
	return method, true
}

// ContractResolver looks up the contract identity behind an address. It is
// read-only external state from the perspective of this package, injected
// so tree building and gas aggregation stay testable with fakes.
type ContractResolver interface {
	Lookup(address common.Address) (*Contract, bool)
}

// AccountResolver reports whether an address belongs to a locally managed
// account, and its alias when it has one. Used to label plain transfers.
type AccountResolver interface {
	AccountAlias(address common.Address) (string, bool)
}

// Registry is a bounded, read-heavy contract identity cache. Lookups that
// miss stay misses until Register is called; registration is append-only.
type Registry struct {
	cache *lru.Cache
}

const defaultRegistrySize = 512

func NewRegistry(size int) *Registry {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, _ := lru.New(size)
	return &Registry{cache: cache}
}

func (r *Registry) Register(address common.Address, contract *Contract) {
	r.cache.Add(address, contract)
}

func (r *Registry) Lookup(address common.Address) (*Contract, bool) {
	v, ok := r.cache.Get(address)
	if !ok {
		return nil, false
	}
	return v.(*Contract), true
}

type registryFileEntry struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol,omitempty"`
	ABI    json.RawMessage `json:"abi"`
}

// LoadRegistry reads a JSON file mapping address -> {name, abi} and
// returns a populated registry. Entries without an ABI still resolve by
// name (proxy and fallback calls render generically).
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract registry: %w", err)
	}

	entries := make(map[string]registryFileEntry)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("malformed contract registry %s: %w", path, err)
	}

	registry := NewRegistry(defaultRegistrySize)
	for addr, entry := range entries {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid address %q in contract registry", addr)
		}
		contract := &Contract{Name: entry.Name, Symbol: entry.Symbol}
		if len(entry.ABI) > 0 {
			parsed, err := abi.JSON(strings.NewReader(string(entry.ABI)))
			if err != nil {
				return nil, fmt.Errorf("invalid ABI for %s: %w", addr, err)
			}
			contract.ABI = parsed
		}
		registry.Register(common.HexToAddress(addr), contract)
	}
	return registry, nil
}
