package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const (
	flagListenAddress = "listen-address"
	flagRPCURL        = "rpc-url"
	flagOpsAddress    = "ops-address"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "otterscan",
		Short:        "Local, fast and privacy-friendly block explorer",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runServe,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagListenAddress, "127.0.0.1:3000", "Address to serve the explorer on (env LISTEN_ADDRESS)")
	flags.String(flagRPCURL, "http://localhost:8545", "JSON-RPC endpoint advertised to the browser (env RPC_URL)")
	flags.String(flagOpsAddress, "", "Address for /healthz, /readyz and /metrics; disabled when empty (env OPS_ADDR)")
	flags.String(flagLogLevel, "info", "Log level: debug, info, warn or error (env LOG_LEVEL)")
	flags.String(flagLogFormat, "json", "Log format: json or text (env LOG_FORMAT)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serves the explorer (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	rootCmd.AddCommand(newRoutesCmd())
	return rootCmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
