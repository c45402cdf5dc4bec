package eth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	envAccountsList         = "ETH_ACCOUNTS"
	envAccountPrivateKeyFmt = "ETH_ACCOUNT_%s_PRIVATE_KEY"
	envAccountPublicKeyFmt  = "ETH_ACCOUNT_%s_PUBLIC_KEY"
)

// Signer is the signing capability. Sign returns (nil, nil) when the
// signer refuses or is unable to sign, such as for read-only accounts.
type Signer interface {
	Sign(txn *Transaction) (*types.Transaction, error)
}

// Account is an Ethereum account. Accounts without a private key are
// read-only: they can receive funds and verify signatures but refuse to
// sign.
type Account struct {
	Address    common.Address
	PublicKey  *ecdsa.PublicKey
	PrivateKey *ecdsa.PrivateKey
	Alias      string
}

// ReadOnly reports whether the account lacks signing capability.
func (a *Account) ReadOnly() bool {
	return a.PrivateKey == nil
}

// Sign builds the wire transaction for the prepared request and signs it.
// The request must already be prepared: concrete gas limit, fee fields
// for its type, nonce and chain id filled. Read-only accounts return
// (nil, nil).
func (a *Account) Sign(txn *Transaction) (*types.Transaction, error) {
	if a.ReadOnly() {
		return nil, nil
	}
	if txn.ChainID == nil {
		return nil, &TransactionError{Message: "transaction chain id is not set"}
	}
	if txn.Nonce == nil {
		return nil, &TransactionError{Message: "transaction nonce is not set"}
	}

	value := txn.Value
	if value == nil {
		value = new(big.Int)
	}

	var wire *types.Transaction
	switch txn.Type {
	case DynamicFeeTxType:
		if txn.MaxFee == nil || txn.MaxPriorityFee == nil {
			return nil, &TransactionError{Message: "dynamic-fee transaction is missing fee fields"}
		}
		wire = types.NewTx(&types.DynamicFeeTx{
			ChainID:   txn.ChainID,
			Nonce:     *txn.Nonce,
			GasTipCap: txn.MaxPriorityFee,
			GasFeeCap: txn.MaxFee,
			Gas:       txn.GasLimit,
			To:        txn.Receiver,
			Value:     value,
			Data:      txn.Data,
		})
	case LegacyTxType:
		if txn.GasPrice == nil {
			return nil, &TransactionError{Message: "legacy transaction is missing a gas price"}
		}
		wire = types.NewTx(&types.LegacyTx{
			Nonce:    *txn.Nonce,
			GasPrice: txn.GasPrice,
			Gas:      txn.GasLimit,
			To:       txn.Receiver,
			Value:    value,
			Data:     txn.Data,
		})
	default:
		return nil, &TransactionError{Message: fmt.Sprintf("unsupported transaction type %d", txn.Type)}
	}

	signed, err := types.SignTx(wire, types.LatestSignerForChainID(txn.ChainID), a.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	v, r, s := signed.RawSignatureValues()
	// r and s are fixed 32-byte words; v keeps its minimal encoding but
	// never collapses to nothing.
	vBytes := v.Bytes()
	if len(vBytes) == 0 {
		vBytes = []byte{0}
	}
	signature := append(common.LeftPadBytes(r.Bytes(), 32), common.LeftPadBytes(s.Bytes(), 32)...)
	txn.Signature = append(signature, vBytes...)
	return signed, nil
}

// NewAccount derives an account from a hex-encoded private key.
func NewAccount(privateKeyHex, alias string) (*Account, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	publicKey := privateKey.Public().(*ecdsa.PublicKey)
	return &Account{
		Address:    crypto.PubkeyToAddress(*publicKey),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Alias:      alias,
	}, nil
}

// LoadAccountsFromEnv reads the comma-separated ETH_ACCOUNTS labels and
// builds an account per label from its ETH_ACCOUNT_<LABEL>_PRIVATE_KEY,
// or a read-only account from ETH_ACCOUNT_<LABEL>_PUBLIC_KEY when only
// the public key is known.
func LoadAccountsFromEnv() ([]*Account, error) {
	labelsRaw := os.Getenv(envAccountsList)
	if labelsRaw == "" {
		return nil, fmt.Errorf("%s env variable not set", envAccountsList)
	}

	var accounts []*Account
	for _, label := range strings.Split(labelsRaw, ",") {
		label = strings.TrimSpace(label)

		privHex := os.Getenv(fmt.Sprintf(envAccountPrivateKeyFmt, strings.ToUpper(label)))
		if privHex != "" {
			account, err := NewAccount(privHex, label)
			if err != nil {
				return nil, fmt.Errorf("invalid private key for %s: %w", label, err)
			}
			accounts = append(accounts, account)
			continue
		}

		pubHex := os.Getenv(fmt.Sprintf(envAccountPublicKeyFmt, strings.ToUpper(label)))
		if pubHex != "" {
			raw, err := decodeHex(pubHex)
			if err != nil {
				return nil, fmt.Errorf("invalid public key for %s: %w", label, err)
			}
			publicKey, err := crypto.UnmarshalPubkey(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid public key for %s: %w", label, err)
			}
			accounts = append(accounts, &Account{
				Address:   crypto.PubkeyToAddress(*publicKey),
				PublicKey: publicKey,
				Alias:     label,
			})
			continue
		}
		return nil, fmt.Errorf("no private or public key found for account[%s] in environment variables", label)
	}
	return accounts, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// AccountSet resolves locally managed accounts by address, satisfying the
// trace package's account resolver for transfer labeling.
type AccountSet struct {
	byAddress map[common.Address]*Account
}

func NewAccountSet(accounts []*Account) *AccountSet {
	set := &AccountSet{byAddress: make(map[common.Address]*Account, len(accounts))}
	for _, account := range accounts {
		set.byAddress[account.Address] = account
	}
	return set
}

// AccountAlias returns the account's alias and whether the address is a
// locally managed account at all.
func (s *AccountSet) AccountAlias(address common.Address) (string, bool) {
	account, ok := s.byAddress[address]
	if !ok {
		return "", false
	}
	return account.Alias, true
}
