package types

import (
	"fmt"
	"time"
)

// ScanSummary holds aggregate statistics for one scan.
type ScanSummary struct {
	TotalAgents        int           `json:"totalAgents"`
	FilesDiscovered    int           `json:"filesDiscovered"`
	FilesScanned       int           `json:"filesScanned"`
	FilesSkipped       int           `json:"filesSkipped"`
	FrameworksDetected int           `json:"frameworksDetected"`
	Duration           time.Duration `json:"durationNs"`
	Timestamp          time.Time     `json:"timestamp"`
	ScanPath           string        `json:"scanPath"`
}

// RiskSummary counts flags per severity and keeps the flattened list.
type RiskSummary struct {
	Critical int        `json:"critical"`
	High     int        `json:"high"`
	Medium   int        `json:"medium"`
	Low      int        `json:"low"`
	Details  []RiskFlag `json:"details"`
}

// Add records flag in the summary.
func (s *RiskSummary) Add(flag RiskFlag) {
	switch flag.Severity {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	}
	s.Details = append(s.Details, flag)
}

// Total returns the number of flags in the summary.
func (s RiskSummary) Total() int {
	return s.Critical + s.High + s.Medium + s.Low
}

// ScanMetadata describes how a scan was run.
type ScanMetadata struct {
	ScanID              string   `json:"scanId"`
	PathsScanned        []string `json:"pathsScanned"`
	ExcludedPaths       []string `json:"excludedPaths"`
	Truncated           bool     `json:"truncated,omitempty"`
	ConfidenceThreshold float64  `json:"confidenceThreshold"`
	ToolVersion         string   `json:"toolVersion"`
}

// ScanResult is the read-only output of a scan consumed by reporters.
type ScanResult struct {
	Summary            ScanSummary    `json:"summary"`
	Agents             []AgentRecord  `json:"agents"`
	FrameworkBreakdown map[string]int `json:"frameworkBreakdown"`
	RiskSummary        RiskSummary    `json:"riskSummary"`
	Metadata           ScanMetadata   `json:"metadata"`
}

// String returns a one-line human-readable description of the result.
func (r *ScanResult) String() string {
	return fmt.Sprintf("%d agent(s) across %d framework(s) in %d file(s), %d risk flag(s) in %v",
		r.Summary.TotalAgents,
		r.Summary.FrameworksDetected,
		r.Summary.FilesScanned,
		r.RiskSummary.Total(),
		r.Summary.Duration.Round(time.Millisecond),
	)
}
