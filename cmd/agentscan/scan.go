package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/git"
	"github.com/steveyegge/agentscan/internal/metrics"
	"github.com/steveyegge/agentscan/internal/scanner"
	"github.com/steveyegge/agentscan/internal/types"
)

var (
	scanThreshold   float64
	scanMaxFiles    int
	scanExclude     []string
	scanWorkers     int
	scanFormat      string
	scanOutput      string
	scanMetricsFile string
	scanRepo        string
	scanQuiet       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory for AI agents",
	Long: `Scan a local directory tree for AI agents and report them with their
framework, confidence, owner and risk flags.

Settings are read from .agentscan.yaml at the scan root and from AGENTSCAN_*
environment variables; flags given on the command line take precedence.

Examples:
  agentscan scan                          # Scan the current directory
  agentscan scan ./services --format json # Machine-readable output
  agentscan scan --threshold 0.6          # Only confident detections
  agentscan scan --exclude 'examples/'    # Skip a directory
  agentscan scan --metrics-file /var/lib/node_exporter/agentscan.prom`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		opts, err := resolveOptions(cmd, path)
		if err != nil {
			return err
		}
		initLogging(cmd, opts.Config)

		if scanFormat != "table" && scanFormat != "json" {
			return fmt.Errorf("unknown format %q (want table or json)", scanFormat)
		}
		if !scanQuiet {
			opts.Progress = progressPrinter(os.Stderr)
		}

		result, err := newScanner().Scan(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return emit(result)
	},
}

func init() {
	defaults := config.Default()
	flags := scanCmd.Flags()
	flags.Float64Var(&scanThreshold, "threshold", defaults.ConfidenceThreshold, "Minimum detection confidence (0-1)")
	flags.IntVar(&scanMaxFiles, "max-files", defaults.MaxFiles, "Maximum number of files to examine")
	flags.StringSliceVar(&scanExclude, "exclude", nil, "Extra glob patterns to exclude (repeatable)")
	flags.IntVar(&scanWorkers, "workers", defaults.Workers, "Number of files matched in parallel")
	flags.StringVar(&scanFormat, "format", "table", "Output format: table or json")
	flags.StringVarP(&scanOutput, "output", "o", "", "Write the report to a file instead of stdout")
	flags.StringVar(&scanMetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.StringVar(&scanRepo, "repo", "", "Remote repository URL (not supported)")
	flags.BoolVarP(&scanQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.AddCommand(scanCmd)
}

// resolveOptions layers defaults, the project file, the environment and the
// explicitly set flags.
func resolveOptions(cmd *cobra.Command, path string) (scanner.Options, error) {
	opts := scanner.DefaultOptions(path)
	opts.RemoteURL = scanRepo
	if opts.RemoteURL != "" || scanner.IsRemote(path) {
		// The scanner rejects these before touching the filesystem
		return opts, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return opts, fmt.Errorf("loading configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.ConfidenceThreshold = scanThreshold
	}
	if flags.Changed("max-files") {
		cfg.MaxFiles = scanMaxFiles
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, scanExclude...)
	}
	if flags.Changed("workers") {
		cfg.Workers = scanWorkers
	}
	if err := cfg.Validate(); err != nil {
		return opts, err
	}

	opts.Config = cfg
	return opts, nil
}

// newScanner wires git history when the git binary is available.
func newScanner() *scanner.Scanner {
	var history git.History
	if g, err := git.NewGit(context.Background()); err == nil {
		history = g
	}
	return scanner.New(history)
}

// progressPrinter reports phase changes immediately and per-file progress at
// most a few times per second.
func progressPrinter(w io.Writer) scanner.Observer {
	every := rate.Sometimes{Interval: 250 * time.Millisecond}
	return func(p scanner.Progress) {
		if p.CurrentFile == "" {
			fmt.Fprintf(w, "%s: %d file(s) discovered, %d scanned, %d agent(s)\n",
				p.Phase, p.FilesDiscovered, p.FilesScanned, p.AgentsFound)
			return
		}
		every.Do(func() {
			fmt.Fprintf(w, "  %d/%d %s\n", p.FilesScanned, p.FilesDiscovered, p.CurrentFile)
		})
	}
}

// emit writes the report and the optional metrics file.
func emit(result *types.ScanResult) error {
	var out io.Writer = os.Stdout
	if scanOutput != "" {
		f, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var err error
	if scanFormat == "json" {
		err = writeJSON(out, result)
	} else {
		err = writeTable(out, result)
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if scanMetricsFile != "" {
		m := metrics.New()
		m.Record(result)
		if err := m.WriteTextfile(scanMetricsFile); err != nil {
			return err
		}
	}
	return nil
}
