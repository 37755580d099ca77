package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/abiconsole/internal/config"
	"github.com/matthewbaird/abiconsole/internal/endpoint/ethrpc"
	"github.com/matthewbaird/abiconsole/internal/invoke"
	"github.com/matthewbaird/abiconsole/internal/logging"
	"github.com/matthewbaird/abiconsole/internal/naming"
)

func newCallCmd() *cobra.Command {
	var (
		configPath string
		rpc        ethrpc.Config
		target     string
		sets       []string
	)
	cmd := &cobra.Command{
		Use:   "call <abi-file> <operation>",
		Short: "Invoke one operation against an endpoint",
		Long: `Invoke one operation and print its result. View and pure functions are
read; everything else is sent as a transaction and the command waits for its
receipt. Arguments are given as --set name=value, where name is either the
parameter name or the full control id (operation-parameter).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, _, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			flags := cmd.Flags()
			if !flags.Changed("rpc") {
				rpc.URL = cfg.RPC.URL
			}
			if !flags.Changed("chain-id") {
				rpc.ChainID = cfg.RPC.ChainID
			}
			if !flags.Changed("key") {
				rpc.SignerKey = cfg.RPC.SignerKey
			}
			if !flags.Changed("target") {
				target = cfg.RPC.Target
			}
			rpc.PollInterval = cfg.RPC.Poll()

			s, err := readSchema(cmd, args[0])
			if err != nil {
				return err
			}
			op := args[1]
			values, err := parseSets(op, sets)
			if err != nil {
				return err
			}

			sess, err := ethrpc.NewProvider(rpc, log).AcquireSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("acquiring session: %w", err)
			}
			if c, ok := sess.(interface{ Close() error }); ok {
				defer c.Close()
			}

			engine := invoke.New(invoke.WithLogger(log))
			engine.Load(cmd.Context(), s)
			out, err := engine.Invoke(cmd.Context(), op, target, values, sess)
			if err != nil {
				return fmt.Errorf("%s [%s]: %w", op, invoke.ErrorCode(err), err)
			}

			w := cmd.OutOrStdout()
			if out.TxHash != "" {
				pterm.Info.WithWriter(w).Printfln("transaction %s confirmed", out.TxHash)
			}
			fmt.Fprintln(w, out.Result)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "CUE configuration file")
	f.StringVar(&rpc.URL, "rpc", "", "endpoint URL")
	f.Int64Var(&rpc.ChainID, "chain-id", 0, "chain id for signing (0 asks the endpoint)")
	f.StringVar(&rpc.SignerKey, "key", "", "hex private key for transactions")
	f.StringVar(&target, "target", "", "contract address")
	f.StringArrayVar(&sets, "set", nil, "argument as name=value (repeatable)")
	return cmd
}

// parseSets turns name=value pairs into control values for op. Bare
// parameter names are expanded to control ids.
func parseSets(op string, sets []string) (map[string]string, error) {
	values := make(map[string]string, len(sets))
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--set %q: want name=value", kv)
		}
		if !strings.HasPrefix(k, op+"-") {
			k = naming.FieldID(op, k)
		}
		values[k] = v
	}
	return values, nil
}
