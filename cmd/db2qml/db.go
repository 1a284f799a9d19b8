package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/convert"
	"github.com/seisops/db2qml/internal/quakeml"
)

func dbCmd() *cobra.Command {
	var evid, orid int64
	var out string
	var deleted bool

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Convert one database event to QuakeML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if evid == 0 && orid == 0 {
				return fmt.Errorf("one of --evid or --orid is required")
			}
			cfg := configFrom(cmd.Context())

			conv, pool, err := openConverter(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if deleted {
				data, err := quakeml.Render(quakeml.Document(conv.DeleteEvent(evid)))
				if err != nil {
					return err
				}
				return writeOut(out, data)
			}

			var (
				ev    *catalog.Event
				diags []convert.Diagnostic
			)
			if orid != 0 {
				ev, diags, err = conv.BuildEventByOrid(cmd.Context(), orid)
			} else {
				ev, diags, err = conv.BuildEvent(cmd.Context(), evid)
			}
			if err != nil {
				return err
			}
			logDiags(diags)

			data, err := quakeml.Render(quakeml.Document(ev))
			if err != nil {
				return err
			}
			return writeOut(out, data)
		},
	}

	cmd.Flags().Int64Var(&evid, "evid", 0, "event id to convert")
	cmd.Flags().Int64Var(&orid, "orid", 0, "origin id whose event to convert")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "emit a deletion stub for --evid instead of converting")
	return cmd
}

func batchCmd() *cobra.Command {
	var limit, workers int
	var dir string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert recent events to QuakeML files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			if limit == 0 {
				limit = cfg.Batch.Limit
			}
			if workers == 0 {
				workers = cfg.Batch.Workers
			}

			conv, pool, err := openConverter(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			evids, err := conv.Evids(cmd.Context(), limit)
			if err != nil {
				return err
			}

			results, err := conv.ConvertBatch(cmd.Context(), evids, workers)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			var failed int
			for _, res := range results {
				logDiags(res.Diagnostics)
				if res.Err != nil {
					fmt.Fprintf(os.Stderr, "evid %d: %v\n", res.Evid, res.Err)
					failed++
					continue
				}
				data, err := quakeml.Render(quakeml.Document(res.Event))
				if err != nil {
					return err
				}
				name := filepath.Join(dir, strconv.FormatInt(res.Evid, 10)+".xml")
				if err := os.WriteFile(name, data, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "converted %d/%d events\n", len(results)-failed, len(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum events to convert (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent builders (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "quakeml", "output directory")
	return cmd
}

func writeOut(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
