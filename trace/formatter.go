package trace

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddressLabel replaces the zero address in rendered output.
const ZeroAddressLabel = "ZERO_ADDRESS"

// OriginLabel replaces the transaction sender's address in rendered output.
const OriginLabel = "tx.origin"

const humanizeThreshold = 24

// Formatter turns decoded ABI values into human-presentable forms:
// byte blobs become strings, hashes or addresses, addresses resolve to
// known identities, and composite values format element-wise. Format is
// total over everything the decoder can produce and never panics.
type Formatter struct {
	Resolver ContractResolver
	Origin   common.Address
}

func (f *Formatter) Format(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return f.formatBytes(v)
	case common.Address:
		return f.FormatAddress(v)
	case common.Hash:
		return f.formatBytes(v.Bytes())
	case string:
		if v == Placeholder {
			return v
		}
		if common.IsHexAddress(v) {
			return f.FormatAddress(common.HexToAddress(v))
		}
		// Quote plain strings to disambiguate them from identifiers.
		return fmt.Sprintf("%q", v)
	case *big.Int, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	}
	return f.formatReflected(reflect.ValueOf(value))
}

func (f *Formatter) formatReflected(rv reflect.Value) interface{} {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return f.Format(rv.Elem().Interface())
	case reflect.Array, reflect.Slice:
		// Fixed-size byte arrays (bytes32 and friends) decode as arrays of
		// uint8; treat them as byte blobs, everything else element-wise.
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				raw[i] = byte(rv.Index(i).Uint())
			}
			return f.formatBytes(raw)
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = f.Format(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		// ABI tuples decode into anonymous structs; format field-wise.
		out := make(map[string]interface{}, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			out[rt.Field(i).Name] = f.Format(rv.Field(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = f.Format(iter.Value().Interface())
		}
		return out
	}
	return rv.Interface()
}

func (f *Formatter) formatBytes(value []byte) interface{} {
	trimmed := bytes.TrimRight(value, "\x00")
	if len(trimmed) > 0 && utf8.Valid(trimmed) && isPrintable(trimmed) {
		return fmt.Sprintf("'%s'", trimmed)
	}
	if len(value) > humanizeThreshold {
		return humanizeHash(value)
	}
	hexStr := "0x" + hex.EncodeToString(value)
	if common.IsHexAddress(hexStr) {
		return f.FormatAddress(common.HexToAddress(hexStr))
	}
	return hexStr
}

// FormatAddress resolves an address against known identities: the zero
// address, the transaction origin, a registered contract's name, or the
// checksummed address itself.
func (f *Formatter) FormatAddress(address common.Address) string {
	if address == (common.Address{}) {
		return ZeroAddressLabel
	}
	if address == f.Origin {
		return OriginLabel
	}
	if f.Resolver != nil {
		if contract, ok := f.Resolver.Lookup(address); ok && contract.Name != "" {
			return contract.Name
		}
	}
	return address.Hex()
}

// humanizeHash truncates a long byte blob to its leading and trailing hex
// digits, e.g. "1234..abcd".
func humanizeHash(value []byte) string {
	full := hex.EncodeToString(value)
	if len(full) <= 8 {
		return full
	}
	return full[:4] + ".." + full[len(full)-4:]
}

func isPrintable(b []byte) bool {
	for _, r := range string(b) {
		if r == utf8.RuneError || r < 0x20 {
			return false
		}
	}
	return true
}
