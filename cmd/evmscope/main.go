// evmscope inspects Ethereum transactions: call trees, gas reports,
// balances and transaction submission against any JSON-RPC endpoint.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nando-os/evmscope/eth"
	"github.com/nando-os/evmscope/trace"
)

var (
	contractsPath string
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evmscope",
		Short: "Ethereum transaction inspector",
		Long: `evmscope reconstructs call trees from execution traces, aggregates
per-method gas usage and drives the full transaction lifecycle against
any Ethereum JSON-RPC endpoint. Network settings come from ETH_*
environment variables (a .env file is honored).`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&contractsPath, "contracts", "", "Path to a JSON contract registry (address -> name/abi)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Include raw call details in trace output")

	rootCmd.AddCommand(traceCmd(), gasCmd(), sendCmd(), balanceCmd(), logsCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded environment from .env")
	}
}

// connect builds network config from the environment and opens the
// provider connection.
func connect(ctx context.Context) (eth.Provider, *eth.NetworkConfig, error) {
	cfg, err := eth.NewNetworkConfig()
	if err != nil {
		return nil, nil, err
	}
	provider := eth.NewProvider(cfg)
	if err := provider.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return provider, cfg, nil
}

func loadResolver() (trace.ContractResolver, error) {
	if contractsPath == "" {
		return trace.NewRegistry(0), nil
	}
	return trace.LoadRegistry(contractsPath)
}

// buildCallTree fetches the richest trace the node offers: parity-style
// traces carry per-frame gas, the geth callTracer comes next, and the
// raw opcode-level frames (cached on the receipt) are the last resort.
func buildCallTree(ctx context.Context, provider eth.Provider, receipt *eth.Receipt) (*trace.CallNode, error) {
	hash := receipt.TxnHash
	if traces, err := provider.GetParityTrace(ctx, hash); err == nil && len(traces) > 0 {
		return trace.CallTreeFromParityTrace(traces)
	}
	if frame, err := provider.GetCallTrace(ctx, hash); err == nil {
		return trace.CallTreeFromGethTrace(frame), nil
	}

	frames, err := receipt.Trace(func(h common.Hash) ([]trace.Frame, error) {
		return provider.GetTransactionTrace(ctx, h)
	})
	if err != nil {
		return nil, fmt.Errorf("node offers no usable trace API: %w", err)
	}
	root := trace.RootCall{
		Caller:   receipt.Sender,
		Calldata: receipt.InputData,
		Value:    receipt.Value,
		GasLimit: receipt.GasLimit,
		GasCost:  receipt.GasUsed,
		Failed:   receipt.Failed(),
	}
	if receipt.Receiver != nil {
		root.Address = *receipt.Receiver
	} else if receipt.ContractAddress != nil {
		root.Address = *receipt.ContractAddress
	}
	return trace.CallTreeFromFrames(root, frames), nil
}

func traceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <tx-hash>",
		Short: "Print the decoded call tree of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Disconnect()

			receipt, err := provider.GetReceipt(ctx, common.HexToHash(args[0]))
			if err != nil {
				return err
			}
			node, err := buildCallTree(ctx, provider, receipt)
			if err != nil {
				return err
			}
			resolver, err := loadResolver()
			if err != nil {
				return err
			}

			renderer := &trace.Renderer{Resolver: resolver, Origin: receipt.Sender, Verbose: verbose}
			fmt.Print(renderer.Render(node).String())
			return nil
		},
	}
	return cmd
}

func gasCmd() *cobra.Command {
	var excludes []string
	cmd := &cobra.Command{
		Use:   "gas <tx-hash> [<tx-hash>...]",
		Short: "Aggregate per-method gas usage across transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Disconnect()

			exclusions := make([]trace.ExclusionPath, 0, len(excludes))
			for _, raw := range excludes {
				exclusion, err := trace.ParseExclusion(raw)
				if err != nil {
					return fmt.Errorf("invalid --exclude %q: %w", raw, err)
				}
				exclusions = append(exclusions, exclusion)
			}

			resolver, err := loadResolver()
			if err != nil {
				return err
			}
			accounts, _ := eth.LoadAccountsFromEnv()
			analyzer := &trace.GasAnalyzer{
				Resolver: resolver,
				Accounts: eth.NewAccountSet(accounts),
			}

			report := trace.GasReport{}
			for _, raw := range args {
				receipt, err := provider.GetReceipt(ctx, common.HexToHash(raw))
				if err != nil {
					return err
				}
				node, err := buildCallTree(ctx, provider, receipt)
				if err != nil {
					return err
				}
				report = trace.MergeReports(report, analyzer.CreateGasReport(node, exclusions))
			}
			trace.RenderGasReport(os.Stdout, report)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Exclude Contract or Contract.method (glob patterns) from the report")
	return cmd
}

func sendCmd() *cobra.Command {
	var (
		from     string
		to       string
		valueWei string
		data     string
		gas      string
		dynamic  bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Prepare, sign, send and confirm a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Disconnect()

			accounts, err := eth.LoadAccountsFromEnv()
			if err != nil {
				return err
			}
			sender, err := pickAccount(accounts, from)
			if err != nil {
				return err
			}

			txn := &eth.Transaction{Sender: sender.Address, Gas: gas}
			if dynamic {
				txn.Type = eth.DynamicFeeTxType
			}
			if to != "" {
				receiver := common.HexToAddress(to)
				txn.Receiver = &receiver
			}
			if valueWei != "" {
				value, ok := new(big.Int).SetString(valueWei, 10)
				if !ok {
					return fmt.Errorf("invalid --value %q", valueWei)
				}
				txn.Value = value
			}
			if data != "" {
				raw, err := decodeHexFlag(data)
				if err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
				txn.Data = raw
			}

			submitter := &eth.Submitter{Provider: provider, Network: cfg, Signer: sender}
			receipt, err := submitter.Submit(ctx, txn)
			if err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"hash":   receipt.TxnHash.Hex(),
				"block":  receipt.BlockNumber,
				"gas":    receipt.GasUsed,
				"status": receipt.Status,
			}).Info("Transaction confirmed")
			if receipt.ContractAddress != nil {
				logrus.WithField("address", receipt.ContractAddress.Hex()).Info("Contract deployed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Alias or address of the sending account (default: first configured)")
	cmd.Flags().StringVar(&to, "to", "", "Recipient address (omit to deploy --data as a contract)")
	cmd.Flags().StringVar(&valueWei, "value", "", "Value to transfer, in wei")
	cmd.Flags().StringVar(&data, "data", "", "Hex-encoded calldata or init code")
	cmd.Flags().StringVar(&gas, "gas", "", `Gas limit: a number, "auto" or "max" (default: network policy)`)
	cmd.Flags().BoolVar(&dynamic, "eip1559", false, "Use dynamic (EIP-1559) fees instead of a legacy gas price")
	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Print an address balance in wei",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Disconnect()

			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			balance, err := provider.GetBalance(ctx, common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(balance.String())
			return nil
		},
	}
}

func logsCmd() *cobra.Command {
	var (
		address string
		from    uint64
		toBlock uint64
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Fetch logs over a block range, paginated",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Disconnect()

			filter := eth.LogFilter{StartBlock: from, StopBlock: toBlock}
			if address != "" {
				if !common.IsHexAddress(address) {
					return fmt.Errorf("invalid address %q", address)
				}
				filter.Addresses = []common.Address{common.HexToAddress(address)}
			}
			if filter.StopBlock == 0 {
				latest, err := provider.GetBlock(ctx, nil)
				if err != nil {
					return err
				}
				filter.StopBlock = latest.Number
			}

			logs, err := eth.FetchLogs(ctx, provider, filter, cfg.BlockPageSize, cfg.Concurrency)
			if err != nil {
				return err
			}
			for _, entry := range logs {
				fmt.Printf("block=%d tx=%s address=%s topics=%d\n",
					entry.BlockNumber, entry.TxHash.Hex(), entry.Address.Hex(), len(entry.Topics))
			}
			logrus.WithField("count", len(logs)).Info("Logs fetched")
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Restrict to logs emitted by this address")
	cmd.Flags().Uint64Var(&from, "from-block", 0, "First block of the range")
	cmd.Flags().Uint64Var(&toBlock, "to-block", 0, "Last block of the range (default: latest)")
	return cmd
}

func pickAccount(accounts []*eth.Account, selector string) (*eth.Account, error) {
	if selector == "" {
		for _, account := range accounts {
			if !account.ReadOnly() {
				return account, nil
			}
		}
		return nil, fmt.Errorf("no signing account configured")
	}
	for _, account := range accounts {
		if account.Alias == selector || strings.EqualFold(account.Address.Hex(), selector) {
			return account, nil
		}
	}
	return nil, fmt.Errorf("no account matches %q", selector)
}

func decodeHexFlag(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
