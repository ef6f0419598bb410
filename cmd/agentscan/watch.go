package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/discovery"
	"github.com/steveyegge/agentscan/internal/scanner"
	"github.com/steveyegge/agentscan/internal/types"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rescan a directory whenever files change",
	Long: `Watch a directory tree and rerun the scan after files change, reporting
agents that appeared or disappeared since the previous scan.

Examples:
  agentscan watch
  agentscan watch ./services --debounce 2s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		if scanner.IsRemote(path) {
			return fmt.Errorf("%w: %s", scanner.ErrRemoteScan, path)
		}

		opts, err := resolveOptions(cmd, path)
		if err != nil {
			return err
		}
		initLogging(cmd, opts.Config)

		return runWatch(cmd.Context(), newScanner(), opts, watchDebounce, os.Stdout)
	},
}

func init() {
	defaults := config.Default()
	flags := watchCmd.Flags()
	flags.Float64Var(&scanThreshold, "threshold", defaults.ConfidenceThreshold, "Minimum detection confidence (0-1)")
	flags.IntVar(&scanMaxFiles, "max-files", defaults.MaxFiles, "Maximum number of files to examine")
	flags.StringSliceVar(&scanExclude, "exclude", nil, "Extra glob patterns to exclude (repeatable)")
	flags.IntVar(&scanWorkers, "workers", defaults.Workers, "Number of files matched in parallel")
	flags.DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before rescanning")
	rootCmd.AddCommand(watchCmd)
}

// runWatch scans once, then rescans after every burst of file events until
// ctx is cancelled.
func runWatch(ctx context.Context, s *scanner.Scanner, opts scanner.Options, debounce time.Duration, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, opts.Path); err != nil {
		return fmt.Errorf("watching %s: %w", opts.Path, err)
	}

	prev, err := s.Scan(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.Kitchen), prev)

	rescan := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(opts.Path, ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, ev.Name); err != nil {
						log.Debug().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
					}
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case rescan <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-rescan:
			next, err := s.Scan(ctx, opts)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error().Err(err).Msg("rescan failed")
				continue
			}
			reportChanges(out, prev, next)
			prev = next
		}
	}
}

// ignoreEvent filters attribute-only changes and anything under a directory
// below root that discovery never descends into.
func ignoreEvent(root string, ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return true
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil {
		return false
	}
	dir := filepath.Dir(rel)
	if dir == "." || strings.HasPrefix(dir, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if slices.Contains(discovery.SkipDirs, part) {
			return true
		}
	}
	return false
}

func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(discovery.SkipDirs, d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// agentChanges compares two results by record key.
func agentChanges(prev, next *types.ScanResult) (added, removed []types.AgentRecord) {
	before := make(map[types.RecordKey]bool, len(prev.Agents))
	for _, a := range prev.Agents {
		before[a.Key()] = true
	}
	after := make(map[types.RecordKey]bool, len(next.Agents))
	for _, a := range next.Agents {
		after[a.Key()] = true
		if !before[a.Key()] {
			added = append(added, a)
		}
	}
	for _, a := range prev.Agents {
		if !after[a.Key()] {
			removed = append(removed, a)
		}
	}
	return added, removed
}

func reportChanges(w io.Writer, prev, next *types.ScanResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", time.Now().Format(time.Kitchen), next)
	added, removed := agentChanges(prev, next)
	for _, a := range added {
		fmt.Fprintf(w, "  %s %s %s\n", green("+"), a.Name, a.Location.FilePath)
	}
	for _, a := range removed {
		fmt.Fprintf(w, "  %s %s %s\n", red("-"), a.Name, a.Location.FilePath)
	}
}
