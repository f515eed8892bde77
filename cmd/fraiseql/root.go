package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fraiseql/fraiseql-engine/internal/logging"
)

var (
	cfgPath string
	jsonLog bool
	log     *zap.Logger
)

// Execute runs the CLI and returns the process exit code: 0 on success,
// 2 on a validation failure the core surfaces (e.g. a dependency cycle
// reported by depgraph), 1 for any other error.
func Execute() int {
	log = logging.New(jsonLog)
	defer func() { log.Sync() }() //nolint:errcheck

	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "fraiseql",
		Short: "FraiseQL GraphQL-to-SQL engine",
		// Rebuild the logger once flags are parsed so --json-log applies.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.New(jsonLog)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./config/fraiseql.yml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit structured JSON logs")

	rootCmd.AddCommand(depgraphCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode != 0 {
			return exitCode
		}
		return 1
	}
	return exitCode
}

// exitCode is set by a command's RunE before returning, for the cases
// (depgraph) where the core distinguishes "ran successfully but reported
// a validation problem" (exit 2) from a hard command error (exit 1).
var exitCode int
