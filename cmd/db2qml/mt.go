package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seisops/db2qml/internal/convert"
	"github.com/seisops/db2qml/internal/quakeml"
)

func mtCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "mt FILE...",
		Short: "Convert Ichinose moment-tensor solution files to QuakeML",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			opts, err := converterOptions(cfg)
			if err != nil {
				return err
			}
			conv := convert.NewIchinoseConverter(opts)

			for _, path := range args {
				text, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				ev, diags, err := conv.Convert([]string{string(text)})
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				logDiags(diags)

				data, err := quakeml.Render(quakeml.Document(ev))
				if err != nil {
					return err
				}
				if dir == "" {
					if _, err := os.Stdout.Write(data); err != nil {
						return err
					}
					continue
				}
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".xml"
				if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default stdout)")
	return cmd
}
