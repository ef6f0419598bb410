// Package registry deduplicates agent detections by (framework, file path)
// and folds auxiliary evidence into the records it holds.
package registry

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/steveyegge/agentscan/internal/evidence"
	"github.com/steveyegge/agentscan/internal/matcher"
	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// ConfigOnlyConfidence is the confidence of a record created from a framework
// configuration file alone.
const ConfigOnlyConfidence = 0.7

// EnvBoost is added to a record for each provider key it accepts.
const EnvBoost = 0.05

// Registry holds agent records keyed by (framework, file path) in insertion
// order.
type Registry struct {
	mu      sync.Mutex
	records map[types.RecordKey]*types.AgentRecord
	order   []types.RecordKey
	newID   func() string
}

// New creates an empty registry that assigns random UUIDs to new records.
func New() *Registry {
	return &Registry{
		records: make(map[types.RecordKey]*types.AgentRecord),
		newID:   uuid.NewString,
	}
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Get returns the record for key.
func (r *Registry) Get(key types.RecordKey) (*types.AgentRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// Records returns the records in insertion order. The pointers are shared
// with the registry so that later pipeline stages can enrich them.
func (r *Registry) Records() []*types.AgentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*types.AgentRecord, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.records[key])
	}
	return out
}

// Upsert inserts a detection or merges it into the existing record with the
// same key. Merging unions evidence and capabilities and re-aggregates the
// confidence over the merged evidence. It reports whether a new record was
// created.
func (r *Registry) Upsert(d matcher.Detection, caps []types.Capability) (*types.AgentRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := types.RecordKey{Framework: d.Framework, FilePath: d.FilePath}
	if rec, ok := r.records[key]; ok {
		for _, ev := range d.Evidence {
			addEvidence(rec, ev)
		}
		for _, c := range caps {
			if !rec.HasCapability(c) {
				rec.Capabilities = append(rec.Capabilities, c)
			}
		}
		rec.Confidence = matcher.Aggregate(rec.Evidence)
		return rec, false
	}

	rec := &types.AgentRecord{
		ID:         r.newID(),
		Name:       DeriveName(d.Framework, d.FilePath),
		Framework:  d.Framework,
		Confidence: matcher.Clamp(d.Confidence),
		Location: types.Location{
			FilePath: d.FilePath,
			Line:     d.Line,
			Column:   d.Column,
		},
		Metadata: types.AgentMetadata{
			Language:   d.Language,
			EntryPoint: d.FilePath,
		},
		Capabilities: append([]types.Capability(nil), caps...),
	}
	for _, ev := range d.Evidence {
		addEvidence(rec, ev)
	}

	r.insert(key, rec)
	return rec, true
}

// FoldDependency attaches dependency evidence to every record of the mapped
// framework that does not already hold dependency evidence for the same
// package. Each attachment adds half the evidence contribution. It returns
// the number of records updated.
func (r *Registry) FoldDependency(p evidence.Pending) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, key := range r.order {
		rec := r.records[key]
		if rec.Framework != p.Framework || hasPattern(rec, types.EvidenceDependency, p.Evidence.Pattern) {
			continue
		}
		rec.Evidence = append(rec.Evidence, p.Evidence)
		rec.Confidence = boost(rec.Confidence, p.Evidence.Confidence/2)
		rec.Metadata.Dependencies = appendUnique(rec.Metadata.Dependencies, p.Name)
		updated++
	}
	return updated
}

// FoldEnv attaches provider-key evidence to every record, at most once per
// environment pattern, adding EnvBoost each time.
func (r *Registry) FoldEnv(p evidence.Pending) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, key := range r.order {
		rec := r.records[key]
		if hasPattern(rec, types.EvidenceEnvVar, p.Evidence.Pattern) {
			continue
		}
		rec.Evidence = append(rec.Evidence, p.Evidence)
		rec.Confidence = boost(rec.Confidence, EnvBoost)
		updated++
	}
	return updated
}

// FoldConfig applies a framework configuration file. When the framework has
// no record yet, a record keyed on the config file is created at
// ConfigOnlyConfidence. Otherwise every record of the framework is
// corroborated once per config file name, adding half the evidence
// contribution; records that were themselves created from configuration
// keep their fixed confidence. It reports whether a record was created.
func (r *Registry) FoldConfig(p evidence.Pending) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*types.AgentRecord
	for _, key := range r.order {
		if rec := r.records[key]; rec.Framework == p.Framework {
			matched = append(matched, rec)
		}
	}

	if len(matched) == 0 {
		rec := &types.AgentRecord{
			ID:         r.newID(),
			Name:       DeriveName(p.Framework, p.Evidence.FilePath),
			Framework:  p.Framework,
			Confidence: ConfigOnlyConfidence,
			Location:   types.Location{FilePath: p.Evidence.FilePath},
			Metadata: types.AgentMetadata{
				Language:    configLanguage(p.Evidence.FilePath),
				EntryPoint:  p.Evidence.FilePath,
				ConfigFiles: []string{p.Evidence.FilePath},
			},
			Evidence: []types.DetectionEvidence{p.Evidence},
		}
		r.insert(rec.Key(), rec)
		return true
	}

	for _, rec := range matched {
		rec.Metadata.ConfigFiles = appendUnique(rec.Metadata.ConfigFiles, p.Evidence.FilePath)
		if hasPattern(rec, types.EvidenceConfigFile, p.Evidence.Pattern) {
			continue
		}
		configOnly := onlyConfigEvidence(rec)
		rec.Evidence = append(rec.Evidence, p.Evidence)
		if !configOnly {
			rec.Confidence = boost(rec.Confidence, p.Evidence.Confidence/2)
		}
	}
	return false
}

// Prune removes records whose confidence is below threshold and returns how
// many were removed.
func (r *Registry) Prune(threshold float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0]
	for _, key := range r.order {
		if r.records[key].Confidence < threshold {
			delete(r.records, key)
			continue
		}
		kept = append(kept, key)
	}
	removed := len(r.order) - len(kept)
	r.order = kept
	return removed
}

// Frameworks returns the distinct frameworks with at least one record, in
// first-seen order.
func (r *Registry) Frameworks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	seen := make(map[string]bool)
	for _, key := range r.order {
		if !seen[key.Framework] {
			seen[key.Framework] = true
			out = append(out, key.Framework)
		}
	}
	return out
}

func (r *Registry) insert(key types.RecordKey, rec *types.AgentRecord) {
	r.records[key] = rec
	r.order = append(r.order, key)
}

// DeriveName builds a display name from the file stem and the framework's
// display name, e.g. "crew (CrewAI)".
func DeriveName(framework, filePath string) string {
	base := path.Base(filePath)
	stem := strings.TrimPrefix(strings.TrimSuffix(base, path.Ext(base)), ".")
	if stem == "" {
		stem = base
	}
	return fmt.Sprintf("%s (%s)", stem, patterns.DisplayName(framework))
}

func addEvidence(rec *types.AgentRecord, ev types.DetectionEvidence) {
	for _, have := range rec.Evidence {
		if have.Type == ev.Type && have.Pattern == ev.Pattern &&
			have.Line == ev.Line && have.FilePath == ev.FilePath {
			return
		}
	}
	rec.Evidence = append(rec.Evidence, ev)
}

func hasPattern(rec *types.AgentRecord, t types.EvidenceType, pattern string) bool {
	for _, ev := range rec.Evidence {
		if ev.Type == t && ev.Pattern == pattern {
			return true
		}
	}
	return false
}

func onlyConfigEvidence(rec *types.AgentRecord) bool {
	for _, ev := range rec.Evidence {
		if ev.Type != types.EvidenceConfigFile {
			return false
		}
	}
	return len(rec.Evidence) > 0
}

func boost(confidence, delta float64) float64 {
	return matcher.Clamp(matcher.Round(confidence + delta))
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}

func configLanguage(filePath string) types.Language {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".yaml", ".yml":
		return types.LanguageYAML
	}
	return types.LanguageJSON
}
