package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/scanner"
	"github.com/steveyegge/agentscan/internal/types"
)

func init() {
	color.NoColor = true
}

func sampleResult() *types.ScanResult {
	return &types.ScanResult{
		Summary: types.ScanSummary{
			TotalAgents:        2,
			FilesDiscovered:    5,
			FilesScanned:       4,
			FilesSkipped:       1,
			FrameworksDetected: 2,
			Duration:           42 * time.Millisecond,
			ScanPath:           "/src/app",
		},
		Agents: []types.AgentRecord{
			{
				ID: "a1", Name: "crew (CrewAI)", Framework: "crewai", Confidence: 0.9,
				Location: types.Location{FilePath: "crew.py", Line: 1},
				Metadata: types.AgentMetadata{Owner: "Ada <ada@example.com>"},
			},
			{
				ID: "a2", Name: "agents (CrewAI)", Framework: "crewai", Confidence: 0.7,
				Location: types.Location{FilePath: "config/agents.yaml"},
			},
		},
		FrameworkBreakdown: map[string]int{"crewai": 2},
		RiskSummary: types.RiskSummary{
			Medium: 1,
			Details: []types.RiskFlag{
				{Severity: types.SeverityMedium, Type: "no-owner", Description: "Agent has no identifiable owner in revision history", AgentID: "a2"},
			},
		},
		Metadata: types.ScanMetadata{ScanID: "01HZZZ", Truncated: true},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Scanned /src/app")
	assert.Contains(t, out, "Files: 5 discovered, 4 scanned, 1 skipped")
	assert.Contains(t, out, "file cap reached")
	assert.Contains(t, out, "crew.py:1")
	assert.Contains(t, out, "Ada <ada@example.com>")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "Frameworks: CrewAI (2)")
	assert.Contains(t, out, "Risks: 0 critical, 0 high, 1 medium, 0 low")
	assert.Contains(t, out, "[MEDIUM] no-owner agents (CrewAI)")
}

func TestWriteTable_NoAgents(t *testing.T) {
	result := &types.ScanResult{Summary: types.ScanSummary{ScanPath: "/src"}}
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, result))
	assert.Contains(t, buf.String(), "No agents found")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleResult()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "agents")
	assert.Contains(t, decoded, "frameworkBreakdown")
	assert.Contains(t, decoded, "riskSummary")
	assert.Contains(t, decoded, "metadata")
}

func TestFormatBreakdown(t *testing.T) {
	got := formatBreakdown(map[string]int{"mcp": 1, "crewai": 3, "autogen": 1})
	assert.Equal(t, "CrewAI (3), AutoGen (1), MCP Server (1)", got)
	assert.Equal(t, "", formatBreakdown(nil))
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	observe := progressPrinter(&buf)

	observe(scanner.Progress{Phase: scanner.PhaseDiscovering})
	observe(scanner.Progress{Phase: scanner.PhaseScanning, FilesDiscovered: 3, FilesScanned: 1, CurrentFile: "a.py"})
	observe(scanner.Progress{Phase: scanner.PhaseScanning, FilesDiscovered: 3, FilesScanned: 2, CurrentFile: "b.py"})
	observe(scanner.Progress{Phase: scanner.PhaseComplete, FilesDiscovered: 3, FilesScanned: 3, AgentsFound: 1})

	out := buf.String()
	assert.Contains(t, out, "discovering: 0 file(s)")
	assert.Contains(t, out, "1/3 a.py")
	assert.NotContains(t, out, "b.py", "per-file lines are throttled")
	assert.Contains(t, out, "complete: 3 file(s) discovered, 3 scanned, 1 agent(s)")
}

func TestListFrameworks(t *testing.T) {
	var buf bytes.Buffer
	listFrameworks(&buf)
	out := buf.String()
	assert.Contains(t, out, "crewai (CrewAI)")
	assert.Contains(t, out, "Config files: agents.yaml")
	assert.Contains(t, out, "Languages:    python")
}

func flagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	flags := cmd.Flags()
	flags.Float64Var(&scanThreshold, "threshold", 0.4, "")
	flags.IntVar(&scanMaxFiles, "max-files", 10000, "")
	flags.StringSliceVar(&scanExclude, "exclude", nil, "")
	flags.IntVar(&scanWorkers, "workers", 1, "")
	return cmd
}

func TestLoggingConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "info"

	lc := loggingConfig(&cobra.Command{Use: "watch [path]"}, cfg)
	assert.Equal(t, "watch", lc.Component)
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "auto", lc.Format)

	cmd := &cobra.Command{Use: "scan"}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "")
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("log-format", "json"))

	lc = loggingConfig(cmd, cfg)
	assert.Equal(t, "scan", lc.Component)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestResolveOptions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName),
		[]byte("threshold: 0.6\nworkers: 2\nexclude: [\"tests/\"]\n"), 0644))

	t.Run("file values without flags", func(t *testing.T) {
		opts, err := resolveOptions(flagCommand(), root)
		require.NoError(t, err)
		assert.Equal(t, 0.6, opts.ConfidenceThreshold)
		assert.Equal(t, 2, opts.Workers)
		assert.Equal(t, []string{"tests/"}, opts.Exclude)
	})

	t.Run("flags override file", func(t *testing.T) {
		cmd := flagCommand()
		require.NoError(t, cmd.Flags().Set("threshold", "0.8"))
		require.NoError(t, cmd.Flags().Set("exclude", "examples/"))

		opts, err := resolveOptions(cmd, root)
		require.NoError(t, err)
		assert.Equal(t, 0.8, opts.ConfidenceThreshold)
		assert.Equal(t, 2, opts.Workers)
		assert.Equal(t, []string{"tests/", "examples/"}, opts.Exclude)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		cmd := flagCommand()
		require.NoError(t, cmd.Flags().Set("threshold", "2"))
		_, err := resolveOptions(cmd, root)
		assert.ErrorIs(t, err, config.ErrInvalid)
	})

	t.Run("remote path skips configuration", func(t *testing.T) {
		opts, err := resolveOptions(flagCommand(), "git@github.com:acme/agents.git")
		require.NoError(t, err)
		assert.Equal(t, "git@github.com:acme/agents.git", opts.Path)
	})
}

func TestAgentChanges(t *testing.T) {
	rec := func(fw, path string) types.AgentRecord {
		return types.AgentRecord{Framework: fw, Location: types.Location{FilePath: path}}
	}
	prev := &types.ScanResult{Agents: []types.AgentRecord{rec("crewai", "a.py"), rec("autogen", "b.py")}}
	next := &types.ScanResult{Agents: []types.AgentRecord{rec("crewai", "a.py"), rec("mcp", "server.py")}}

	added, removed := agentChanges(prev, next)
	require.Len(t, added, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, "mcp", added[0].Framework)
	assert.Equal(t, "autogen", removed[0].Framework)
}

func TestIgnoreEvent(t *testing.T) {
	tests := []struct {
		name string
		root string
		ev   fsnotify.Event
		want bool
	}{
		{"source write", ".", fsnotify.Event{Name: "src/agent.py", Op: fsnotify.Write}, false},
		{"chmod only", ".", fsnotify.Event{Name: "src/agent.py", Op: fsnotify.Chmod}, true},
		{"dependency cache", ".", fsnotify.Event{Name: "web/node_modules/pkg/index.js", Op: fsnotify.Create}, true},
		{"git directory", "/repo", fsnotify.Event{Name: "/repo/.git/index", Op: fsnotify.Write}, true},
		{"top-level file", ".", fsnotify.Event{Name: "agent.py", Op: fsnotify.Create}, false},
		{"root under build directory", "/home/dev/build/myproj", fsnotify.Event{Name: "/home/dev/build/myproj/agent.py", Op: fsnotify.Write}, false},
		{"root under vendor directory", "/src/vendor/app", fsnotify.Event{Name: "/src/vendor/app/pkg/agent.go", Op: fsnotify.Write}, false},
		{"build directory inside root", "/home/dev/build/myproj", fsnotify.Event{Name: "/home/dev/build/myproj/build/out.py", Op: fsnotify.Create}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ignoreEvent(tt.root, tt.ev), tt.ev.String())
		})
	}
}

// cancelWriter cancels the watch loop once the first report is written.
type cancelWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	cancel context.CancelFunc
}

func (w *cancelWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	w.cancel()
	return n, err
}

func TestRunWatch_InitialScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "crew.py"),
		[]byte("from crewai import Crew\ncrew = Crew(agents=[])\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &cancelWriter{cancel: cancel}

	err := runWatch(ctx, scanner.New(nil), scanner.DefaultOptions(root), 10*time.Millisecond, out)
	require.NoError(t, err)

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.True(t, strings.Contains(out.buf.String(), "1 agent(s) across 1 framework(s)"))
}
