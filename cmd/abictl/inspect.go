package main

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/abiconsole/internal/invoke"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <abi-file>",
		Short: "List the callable operations of an interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSchema(cmd, args[0])
			if err != nil {
				return err
			}
			bindings := invoke.Bindings(s)
			out := cmd.OutOrStdout()
			if len(bindings) == 0 {
				pterm.Info.WithWriter(out).Println("no callable operations")
				return nil
			}

			data := pterm.TableData{{"Operation", "Handler", "Path", "Controls", "Outputs"}}
			for _, b := range bindings {
				controls := make([]string, 0, len(b.Fields))
				for _, f := range b.Fields {
					controls = append(controls, f.ID+" ("+f.Type+" → "+f.Repr+")")
				}
				data = append(data, []string{
					b.Operation,
					b.Handler,
					b.Path,
					strings.Join(controls, "\n"),
					strings.Join(b.Outputs, ", "),
				})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").
				WithWriter(out).WithData(data).Render(); err != nil {
				return err
			}
			pterm.Info.WithWriter(out).Printfln("%d operations, digest %s", len(bindings), s.Digest())
			return nil
		},
	}
}
