// Command db2qml converts catalog events to QuakeML from the command
// line: whole events from the database, or moment-tensor solution files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seisops/db2qml/internal/config"
	"github.com/seisops/db2qml/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "db2qml",
		Short:         "Convert seismic catalog events to QuakeML",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional for the CLI
			_ = godotenv.Overload()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}

	root.AddCommand(dbCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(mtCmd())
	return root
}
