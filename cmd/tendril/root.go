package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril is a directed-graph workflow engine",
	Long: `Tendril runs workflows described as graphs of tools, functions, decisions,
loops and batches. It ships a code review workflow and can be driven from the
command line, over HTTP or as an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("tools", "", "Process tools file (overrides tools_file)")
	rootCmd.PersistentFlags().StringSlice("workflow", nil, "Definition file to register at start (repeatable)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for publishing run events")
}

// loadConfig resolves the configuration: file, then environment, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("tools") {
		cfg.ToolsFile, _ = flags.GetString("tools")
	}
	if flags.Changed("workflow") {
		more, _ := flags.GetStringSlice("workflow")
		cfg.Workflows = append(cfg.Workflows, more...)
	}
	if flags.Changed("redis") {
		cfg.Redis.Addr, _ = flags.GetString("redis")
	}
	return cfg, cfg.Validate()
}

// loadStack builds the engine stack for cmd. Logs go to stderr.
func loadStack(ctx context.Context, cmd *cobra.Command) (*config.Config, *cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	st, err := cli.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}
