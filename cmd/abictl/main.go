// Command abictl works with contract interface descriptions from the shell:
// it generates the UI component, lists the callable surface, and makes
// one-shot calls against an endpoint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/abiconsole/internal/abi"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "abictl",
		Short:         "Generate and drive UIs for contract interfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("no-color", false, "disable styled output")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if off, _ := cmd.Flags().GetBool("no-color"); off {
			pterm.DisableStyling()
		}
	}
	root.AddCommand(newEmitCmd(), newInspectCmd(), newCallCmd())
	return root
}

// readSchema loads an interface description or compiler artifact from
// path, or stdin when path is "-".
func readSchema(cmd *cobra.Command, path string) (*abi.Schema, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading interface: %w", err)
	}
	s, err := abi.ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range s.Warnings() {
		pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printfln("entry %d: %s", w.Index, w.Message)
	}
	return s, nil
}
