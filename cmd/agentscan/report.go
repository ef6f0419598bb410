package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

func writeJSON(w io.Writer, result *types.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func severityColor(s types.Severity) func(a ...interface{}) string {
	switch s {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case types.SeverityHigh:
		return color.New(color.FgRed).SprintFunc()
	case types.SeverityMedium:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

func writeTable(w io.Writer, result *types.ScanResult) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	s := result.Summary
	fmt.Fprintf(w, "%s %s\n", cyan("Scanned"), s.ScanPath)
	fmt.Fprintf(w, "  Files: %d discovered, %d scanned, %d skipped\n", s.FilesDiscovered, s.FilesScanned, s.FilesSkipped)
	if result.Metadata.Truncated {
		fmt.Fprintf(w, "  %s file cap reached, results are partial\n", severityColor(types.SeverityMedium)("⚠"))
	}
	fmt.Fprintf(w, "  Duration: %s  Scan: %s\n\n", s.Duration.Round(time.Millisecond), gray(result.Metadata.ScanID))

	if len(result.Agents) == 0 {
		fmt.Fprintf(w, "%s No agents found\n", green("✓"))
		return nil
	}

	names := make(map[string]string, len(result.Agents))
	nameWidth, fwWidth := len("AGENT"), len("FRAMEWORK")
	for _, a := range result.Agents {
		names[a.ID] = a.Name
		nameWidth = max(nameWidth, len(a.Name))
		fwWidth = max(fwWidth, len(a.Framework))
	}

	fmt.Fprintf(w, "%-*s  %-*s  %-10s  %s\n", nameWidth, "AGENT", fwWidth, "FRAMEWORK", "CONFIDENCE", "LOCATION")
	for _, a := range result.Agents {
		loc := a.Location.FilePath
		if a.Location.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, a.Location.Line)
		}
		owner := ""
		if a.Metadata.Owner != "" {
			owner = "  " + gray(a.Metadata.Owner)
		}
		fmt.Fprintf(w, "%-*s  %-*s  %-10.2f  %s%s\n", nameWidth, a.Name, fwWidth, a.Framework, a.Confidence, loc, owner)
	}

	fmt.Fprintf(w, "\n%s %s\n", cyan("Frameworks:"), formatBreakdown(result.FrameworkBreakdown))

	rs := result.RiskSummary
	fmt.Fprintf(w, "%s %d critical, %d high, %d medium, %d low\n", cyan("Risks:"), rs.Critical, rs.High, rs.Medium, rs.Low)
	for _, f := range rs.Details {
		label := severityColor(f.Severity)(fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity))))
		subject := "scan"
		if f.AgentID != "" {
			subject = names[f.AgentID]
		}
		fmt.Fprintf(w, "  %s %s %s: %s\n", label, f.Type, subject, f.Description)
	}
	return nil
}

// formatBreakdown renders "CrewAI (2), LangChain (1)", largest first.
func formatBreakdown(breakdown map[string]int) string {
	frameworks := make([]string, 0, len(breakdown))
	for fw := range breakdown {
		frameworks = append(frameworks, fw)
	}
	sort.Slice(frameworks, func(i, j int) bool {
		if breakdown[frameworks[i]] != breakdown[frameworks[j]] {
			return breakdown[frameworks[i]] > breakdown[frameworks[j]]
		}
		return frameworks[i] < frameworks[j]
	})

	parts := make([]string, 0, len(frameworks))
	for _, fw := range frameworks {
		parts = append(parts, fmt.Sprintf("%s (%d)", patterns.DisplayName(fw), breakdown[fw]))
	}
	return strings.Join(parts, ", ")
}
