package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/logging"
	"github.com/steveyegge/agentscan/internal/scanner"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "agentscan",
	Short: "Inventory AI agents in a codebase",
	Long: `agentscan walks a source tree, detects AI agents built with common agent
frameworks, attributes them to owners from git history and flags governance
risks.`,
	Version:       scanner.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(cmd, config.Default())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: auto, console, json")
}

// initLogging configures logging from cfg, with the persistent flags taking
// precedence when set.
func initLogging(cmd *cobra.Command, cfg config.Config) {
	logging.Init(loggingConfig(cmd, cfg))
}

// loggingConfig tags log lines with the running subcommand.
func loggingConfig(cmd *cobra.Command, cfg config.Config) logging.Config {
	lc := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: cmd.Name()}
	if cmd.Flags().Changed("log-level") {
		lc.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		lc.Format = logFormat
	}
	return lc
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
