package main

import (
	"context"
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP server exposing tools, graphs and runs as a REST API,
with Server-Sent Events per run and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		cfg, st, err := loadStack(sc, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr, tendril.Version)
		}
		return cli.Serve(sc, st, cfg.Addr, cfg.ShutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config, default :8080)")
}
