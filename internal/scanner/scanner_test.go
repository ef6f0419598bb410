package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/git"
	"github.com/steveyegge/agentscan/internal/risk"
	"github.com/steveyegge/agentscan/internal/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const multiFramework = `"""Several frameworks wired together in one module."""
from langchain.agents import AgentExecutor, create_react_agent
from crewai import Agent as CrewAgent, Crew, Task
from autogen import AssistantAgent

lc_agent = create_react_agent(llm=None, tools=[], prompt=None)
executor = AgentExecutor(agent=lc_agent, tools=[])

analyst = CrewAgent(role="Analyst", goal="Summarise", backstory="Reads")
crew = Crew(agents=[analyst], tasks=[])

helper = AssistantAgent("helper", llm_config={"model": "gpt-4o"})
`

const plainApp = `"""Ordinary data processing, no agents."""
import json

def load(path):
    with open(path) as f:
        return json.load(f)
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func newTestScanner(history git.History) *Scanner {
	s := New(history)
	s.Clock = func() time.Time { return fixedNow }
	return s
}

func scan(t *testing.T, root string, mutate ...func(*Options)) *types.ScanResult {
	t.Helper()
	opts := DefaultOptions(root)
	for _, m := range mutate {
		m(&opts)
	}
	result, err := newTestScanner(nil).Scan(context.Background(), opts)
	require.NoError(t, err)
	return result
}

func frameworksOf(result *types.ScanResult) []string {
	var out []string
	for _, a := range result.Agents {
		out = append(out, a.Framework)
	}
	return out
}

func TestScan_NoAgents(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.py": plainApp})

	result := scan(t, root)

	assert.Equal(t, 0, result.Summary.TotalAgents)
	assert.NotNil(t, result.Agents)
	assert.Empty(t, result.Agents)
	assert.Empty(t, result.FrameworkBreakdown)
	assert.Equal(t, 1, result.Summary.FilesDiscovered)
	assert.Equal(t, 1, result.Summary.FilesScanned)
	assert.Equal(t, 0, result.RiskSummary.Total())
	assert.NotNil(t, result.RiskSummary.Details)
	assert.Equal(t, Version, result.Metadata.ToolVersion)
	assert.NotEmpty(t, result.Metadata.ScanID)
	assert.Equal(t, fixedNow, result.Summary.Timestamp)
}

func TestScan_MultiFramework(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"multi.py": multiFramework})

	result := scan(t, root)

	require.Equal(t, []string{"langchain", "autogen", "crewai"}, frameworksOf(result))
	assert.Equal(t, 1.0, result.Agents[0].Confidence)
	assert.Equal(t, 0.9, result.Agents[1].Confidence)
	assert.Equal(t, 0.9, result.Agents[2].Confidence)
	assert.Equal(t, 3, result.Summary.FrameworksDetected)
	assert.Equal(t, map[string]int{"langchain": 1, "autogen": 1, "crewai": 1}, result.FrameworkBreakdown)

	for _, a := range result.Agents {
		assert.Equal(t, "multi.py", a.Location.FilePath)
		assert.Equal(t, types.LanguagePython, a.Metadata.Language)
		assert.NotEmpty(t, a.ID)
		assert.GreaterOrEqual(t, a.Confidence, 0.4)
		assert.LessOrEqual(t, a.Confidence, 1.0)
	}
}

func TestScan_AuxiliaryEvidence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"crew.py":          "from crewai import Agent\n",
		"requirements.txt": "crewai==0.28.8\nrequests\n",
		".env":             "OPENAI_API_KEY=sk-test-secret\n",
	})

	result := scan(t, root)

	require.Len(t, result.Agents, 1)
	agent := result.Agents[0]
	assert.Equal(t, "crewai", agent.Framework)
	assert.Equal(t, 0.7, agent.Confidence)
	assert.Equal(t, []string{"crewai"}, agent.Metadata.Dependencies)

	var kinds []types.EvidenceType
	for _, ev := range agent.Evidence {
		kinds = append(kinds, ev.Type)
	}
	assert.Equal(t, []types.EvidenceType{types.EvidenceImport, types.EvidenceDependency, types.EvidenceEnvVar}, kinds)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test-secret")
	assert.Contains(t, string(data), "OPENAI_API_KEY=[REDACTED]")
	assert.Equal(t, 3, result.Summary.FilesScanned)
}

func TestScan_ConfigOnly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"config/agents.yaml": "researcher:\n  role: Researcher\n  goal: Find things\n",
	})

	result := scan(t, root)

	require.Len(t, result.Agents, 1)
	agent := result.Agents[0]
	assert.Equal(t, "crewai", agent.Framework)
	assert.Equal(t, 0.7, agent.Confidence)
	assert.Equal(t, "config/agents.yaml", agent.Location.FilePath)
	assert.Equal(t, types.LanguageYAML, agent.Metadata.Language)
	assert.Equal(t, []string{"config/agents.yaml"}, agent.Metadata.ConfigFiles)
}

func TestScan_ConfigCorroboratesSource(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"crew.py":            "from crewai import Agent\n",
		"config/agents.yaml": "researcher:\n  role: Researcher\n",
		"config/tasks.yaml":  "research:\n  description: Dig\n",
	})

	result := scan(t, root)

	require.Len(t, result.Agents, 1)
	agent := result.Agents[0]
	assert.Equal(t, "crew.py", agent.Location.FilePath)
	assert.Equal(t, 1.0, agent.Confidence)
	assert.Equal(t, []string{"config/agents.yaml", "config/tasks.yaml"}, agent.Metadata.ConfigFiles)
}

func TestScan_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"multi.py":         multiFramework,
		"app.py":           plainApp,
		"requirements.txt": "autogen\n",
	})

	normalize := func(r *types.ScanResult) *types.ScanResult {
		r.Metadata.ScanID = ""
		for i := range r.Agents {
			r.Agents[i].ID = ""
			for j := range r.Agents[i].Risks {
				r.Agents[i].Risks[j].AgentID = ""
			}
		}
		for i := range r.RiskSummary.Details {
			r.RiskSummary.Details[i].AgentID = ""
		}
		return r
	}

	first := normalize(scan(t, root))
	second := normalize(scan(t, root))
	assert.Equal(t, first, second)
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{"multi.py": multiFramework}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files["agents/"+name+".py"] = "from crewai import Crew\ncrew = Crew(agents=[])\n"
	}
	writeTree(t, root, files)

	sequential := scan(t, root)
	parallel := scan(t, root, func(o *Options) { o.Workers = 4 })

	require.Equal(t, len(sequential.Agents), len(parallel.Agents))
	for i := range sequential.Agents {
		assert.Equal(t, sequential.Agents[i].Key(), parallel.Agents[i].Key())
		assert.Equal(t, sequential.Agents[i].Confidence, parallel.Agents[i].Confidence)
		assert.Equal(t, sequential.Agents[i].Evidence, parallel.Agents[i].Evidence)
	}
	assert.Equal(t, sequential.Summary.FilesScanned, parallel.Summary.FilesScanned)
}

func TestScan_Progress(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"multi.py":         multiFramework,
		"requirements.txt": "crewai\n",
	})

	var events []Progress
	result := scan(t, root, func(o *Options) {
		o.Progress = func(p Progress) { events = append(events, p) }
	})

	var phases []Phase
	var files []string
	for _, e := range events {
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
		if e.CurrentFile != "" {
			assert.Equal(t, PhaseScanning, e.Phase)
			files = append(files, e.CurrentFile)
		}
	}
	assert.Equal(t, []Phase{PhaseDiscovering, PhaseScanning, PhaseEnriching, PhaseComplete}, phases)
	assert.Equal(t, []string{"multi.py", "requirements.txt"}, files)

	last := events[len(events)-1]
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, 2, last.FilesDiscovered)
	assert.Equal(t, 2, last.FilesScanned)
	assert.Equal(t, result.Summary.TotalAgents, last.AgentsFound)
}

func TestScan_AuxiliaryEvidenceFoldedWhileEnriching(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"config/agents.yaml": "researcher:\n  role: Researcher\n",
		"requirements.txt":   "crewai\n",
	})

	var events []Progress
	result := scan(t, root, func(o *Options) {
		o.Progress = func(p Progress) { events = append(events, p) }
	})
	require.Len(t, result.Agents, 1)

	var scanned []string
	var enteredEnriching bool
	for _, e := range events {
		switch e.Phase {
		case PhaseScanning:
			assert.Equal(t, 0, e.AgentsFound, "no record may exist before enriching")
			if e.CurrentFile != "" {
				scanned = append(scanned, e.CurrentFile)
			}
		case PhaseEnriching:
			enteredEnriching = true
			assert.Equal(t, 0, e.AgentsFound)
		case PhaseComplete:
			assert.Equal(t, 1, e.AgentsFound)
		}
	}
	assert.True(t, enteredEnriching)
	assert.Equal(t, []string{"requirements.txt", "config/agents.yaml"}, scanned)
	assert.Equal(t, 2, result.Summary.FilesScanned)
}

func TestScan_ConfigOnlyBelowThreshold(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"config/agents.yaml": "researcher:\n  role: Researcher\n",
	})

	result := scan(t, root, func(o *Options) { o.ConfidenceThreshold = 0.9 })
	assert.Empty(t, result.Agents)
	assert.Equal(t, 0, result.Summary.TotalAgents)
	assert.Empty(t, result.FrameworkBreakdown)

	result = scan(t, root, func(o *Options) { o.ConfidenceThreshold = 0.7 })
	require.Len(t, result.Agents, 1)
	assert.Equal(t, 0.7, result.Agents[0].Confidence)
}

func TestScan_ThresholdMonotonic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"multi.py":  multiFramework,
		"weak.py":   "from crewai import Agent\n",
		"graph.py":  "graph = StateGraph(State)\n",
		"plain.py":  plainApp,
		"single.py": "from autogen import AssistantAgent\n",
	})

	prev := -1
	for _, threshold := range []float64{1, 0.9, 0.6, 0.4, 0.2, 0} {
		result := scan(t, root, func(o *Options) { o.ConfidenceThreshold = threshold })
		if prev >= 0 {
			assert.GreaterOrEqual(t, result.Summary.TotalAgents, prev, "threshold %v", threshold)
		}
		prev = result.Summary.TotalAgents
		for _, a := range result.Agents {
			assert.GreaterOrEqual(t, a.Confidence, threshold)
		}
	}
}

func TestScan_OversizedFileSkipped(t *testing.T) {
	root := t.TempDir()
	big := "from crewai import Crew\n" + strings.Repeat("x = 1\n", MaxFileSize/6+10)
	writeTree(t, root, map[string]string{
		"big.py":   big,
		"small.py": "from crewai import Crew\ncrew = Crew()\n",
	})

	result := scan(t, root)

	assert.Equal(t, 2, result.Summary.FilesDiscovered)
	assert.Equal(t, 1, result.Summary.FilesScanned)
	assert.Equal(t, 1, result.Summary.FilesSkipped)
	require.Len(t, result.Agents, 1)
	assert.Equal(t, "small.py", result.Agents[0].Location.FilePath)
}

func TestScan_Truncated(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "from crewai import Crew\n",
		"b.py": "from crewai import Crew\n",
		"c.py": "from crewai import Crew\n",
	})

	result := scan(t, root, func(o *Options) { o.MaxFiles = 2 })
	assert.True(t, result.Metadata.Truncated)
	assert.Equal(t, 2, result.Summary.FilesDiscovered)
}

func TestScan_RemoteRejected(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "remote url option", opts: Options{Path: ".", RemoteURL: "https://github.com/acme/agents", Config: config.Default()}},
		{name: "https path", opts: DefaultOptions("https://github.com/acme/agents")},
		{name: "scp path", opts: DefaultOptions("git@github.com:acme/agents.git")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			tt.opts.Progress = func(Progress) { called = true }

			result, err := newTestScanner(nil).Scan(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrRemoteScan))
			assert.True(t, errors.Is(err, errors.ErrUnsupported))
			assert.False(t, called, "no work is done for remote scans")
		})
	}
}

func TestScan_InvalidOptions(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.ConfidenceThreshold = 1.5

	_, err := newTestScanner(nil).Scan(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := newTestScanner(nil).Scan(context.Background(), DefaultOptions(filepath.Join(t.TempDir(), "nope")))
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"multi.py": multiFramework})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner(nil).Scan(ctx, DefaultOptions(root))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

type staticHistory struct {
	commits []git.Commit
}

func (h staticHistory) IsRepo(ctx context.Context, repoPath string) bool { return true }

func (h staticHistory) FileHistory(ctx context.Context, repoPath, path string, limit int) ([]git.Commit, error) {
	return h.commits, nil
}

func TestScan_OwnershipAndStaleness(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"crew.py": "from crewai import Crew\ncrew = Crew(agents=[])\n"})

	history := staticHistory{commits: []git.Commit{
		{Author: "Ada <ada@example.com>", Timestamp: fixedNow.AddDate(-1, 0, 0)},
	}}
	result, err := newTestScanner(history).Scan(context.Background(), DefaultOptions(root))
	require.NoError(t, err)

	require.Len(t, result.Agents, 1)
	agent := result.Agents[0]
	assert.Equal(t, "Ada <ada@example.com>", agent.Metadata.Owner)
	require.NotNil(t, agent.Metadata.LastModified)

	var flags []string
	for _, f := range agent.Risks {
		flags = append(flags, f.Type)
		assert.Equal(t, agent.ID, f.AgentID)
	}
	assert.Equal(t, []string{risk.TypeStaleAgent}, flags)
	assert.Equal(t, 1, result.RiskSummary.Low)
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://github.com/acme/agents": true,
		"ssh://git@host/repo.git":        true,
		"git@github.com:acme/agents.git": true,
		".":                              false,
		"/srv/code":                      false,
		"./repo@v2":                      false,
		`C:\code\agents`:                 false,
	}
	for target, want := range tests {
		assert.Equal(t, want, IsRemote(target), target)
	}
}
