package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/abiconsole/internal/emit"
	"github.com/matthewbaird/abiconsole/internal/typemap"
)

func newEmitCmd() *cobra.Command {
	var (
		dialect, mode, outDir string
		stdout                bool
	)
	cmd := &cobra.Command{
		Use:   "emit <abi-file>",
		Short: "Generate the UI component for an interface",
		Long: `Generate a React component with one handler and one set of input
controls per callable function. In external mode the interface is written
next to the component as abi.json; in inline mode it is embedded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := typemap.ParseDialect(dialect)
			if err != nil {
				return err
			}
			m, err := emit.ParseMode(mode)
			if err != nil {
				return err
			}
			s, err := readSchema(cmd, args[0])
			if err != nil {
				return err
			}
			files, err := emit.Files(s, d, m)
			if err != nil {
				return err
			}

			if stdout {
				_, err := io.WriteString(cmd.OutOrStdout(), files[0].Content)
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", outDir, err)
			}
			for _, f := range files {
				path := filepath.Join(outDir, f.Name)
				if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("wrote %s", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", typemap.Dynamic.String(), "dynamic or static")
	cmd.Flags().StringVar(&mode, "mode", emit.External.String(), "external or inline")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the component instead of writing files")
	return cmd
}
