package types

import (
	"fmt"
	"regexp"
	"time"
)

// MaxMatchedTextLength is the longest matched text kept on evidence before
// an ellipsis is appended.
const MaxMatchedTextLength = 200

// EvidenceType tags the kind of signal a piece of evidence represents.
type EvidenceType string

const (
	EvidenceImport        EvidenceType = "import"
	EvidenceInstantiation EvidenceType = "instantiation"
	EvidenceConfigFile    EvidenceType = "config_file"
	EvidenceDependency    EvidenceType = "dependency"
	EvidenceEnvVar        EvidenceType = "env_var"
	EvidenceCodePattern   EvidenceType = "code_pattern"
)

// IsValid checks if the evidence type value is valid
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceImport, EvidenceInstantiation, EvidenceConfigFile,
		EvidenceDependency, EvidenceEnvVar, EvidenceCodePattern:
		return true
	}
	return false
}

// Language identifies a source language the pattern registry understands.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageCSharp     Language = "csharp"
	LanguageYAML       Language = "yaml"
	LanguageJSON       Language = "json"
)

// PatternDefinition is a single matching rule. Definitions are built once at
// package init and never mutated.
type PatternDefinition struct {
	Pattern     *regexp.Regexp
	Type        EvidenceType
	Confidence  float64
	Description string
}

// FrameworkPatternSet holds the matching rules and metadata for one agent
// framework.
type FrameworkPatternSet struct {
	Framework      string
	DisplayName    string
	Languages      []Language
	Imports        []PatternDefinition
	Instantiations []PatternDefinition
	ConfigFiles    []string
	Dependencies   []string
}

// Validate checks the structural invariants of a pattern set.
func (s *FrameworkPatternSet) Validate() error {
	if s.Framework == "" {
		return fmt.Errorf("framework identifier is required")
	}
	if len(s.Languages) == 0 {
		return fmt.Errorf("framework %s: at least one language is required", s.Framework)
	}
	if len(s.Imports) == 0 {
		return fmt.Errorf("framework %s: at least one import pattern is required", s.Framework)
	}
	for _, def := range append(append([]PatternDefinition{}, s.Imports...), s.Instantiations...) {
		if def.Pattern == nil {
			return fmt.Errorf("framework %s: pattern %q is not compiled", s.Framework, def.Description)
		}
		if !def.Type.IsValid() {
			return fmt.Errorf("framework %s: invalid evidence type %q", s.Framework, def.Type)
		}
		if def.Confidence < 0 || def.Confidence > 1 {
			return fmt.Errorf("framework %s: confidence for %q must be between 0 and 1 (got %.2f)",
				s.Framework, def.Description, def.Confidence)
		}
	}
	return nil
}

// SupportsLanguage reports whether the set applies to lang.
func (s *FrameworkPatternSet) SupportsLanguage(lang Language) bool {
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// DetectionEvidence is one matched signal contributing to a detection.
type DetectionEvidence struct {
	Type        EvidenceType `json:"type"`
	Pattern     string       `json:"pattern"`
	MatchedText string       `json:"matchedText"`
	FilePath    string       `json:"filePath"`
	Line        int          `json:"line,omitempty"`
	Confidence  float64      `json:"confidenceContribution"`
}

// TruncateMatch limits text to MaxMatchedTextLength runes, appending "..."
// when anything was cut.
func TruncateMatch(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMatchedTextLength {
		return text
	}
	return string(runes[:MaxMatchedTextLength]) + "..."
}

// Capability is a behaviour an agent's source appears to exercise.
type Capability string

const (
	CapabilityDatabaseAccess Capability = "database_access"
	CapabilityEmailSend      Capability = "email_send"
	CapabilityAgentSpawning  Capability = "agent_spawning"
	CapabilityExternalAPI    Capability = "external_api"
	CapabilityCodeExecution  Capability = "code_execution"
	CapabilityFileWrite      Capability = "file_write"
)

// Location points at where an agent was detected.
type Location struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// AgentMetadata carries descriptive and ownership information for a record.
type AgentMetadata struct {
	Language     Language   `json:"language"`
	EntryPoint   string     `json:"entryPoint"`
	Owner        string     `json:"owner,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	ConfigFiles  []string   `json:"configFiles,omitempty"`
}

// AgentRecord is one deduplicated detection, identified by framework and
// file path.
type AgentRecord struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Framework    string              `json:"framework"`
	Confidence   float64             `json:"confidence"`
	Location     Location            `json:"location"`
	Metadata     AgentMetadata       `json:"metadata"`
	Capabilities []Capability        `json:"capabilities,omitempty"`
	Risks        []RiskFlag          `json:"risks,omitempty"`
	Evidence     []DetectionEvidence `json:"evidence"`
}

// Key returns the deduplication key of the record.
func (r *AgentRecord) Key() RecordKey {
	return RecordKey{Framework: r.Framework, FilePath: r.Location.FilePath}
}

// HasCapability reports whether c was detected for the record.
func (r *AgentRecord) HasCapability(c Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// RecordKey identifies an AgentRecord.
type RecordKey struct {
	Framework string
	FilePath  string
}

func (k RecordKey) String() string {
	return k.Framework + ":" + k.FilePath
}

// Severity classifies a risk flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities from low (1) to critical (4).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// RiskFlag is a governance concern attached to a record or to the scan.
// AgentID is empty for scan-level flags.
type RiskFlag struct {
	Severity    Severity `json:"severity"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	AgentID     string   `json:"agentId,omitempty"`
}
