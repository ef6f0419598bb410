package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/agentscan/internal/types"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func owned(rec *types.AgentRecord, modified time.Time) *types.AgentRecord {
	rec.Metadata.Owner = "alice <a@x>"
	rec.Metadata.LastModified = &modified
	return rec
}

func record(id, framework string, confidence float64, texts ...string) *types.AgentRecord {
	rec := &types.AgentRecord{ID: id, Framework: framework, Confidence: confidence}
	for _, text := range texts {
		rec.Evidence = append(rec.Evidence, types.DetectionEvidence{Type: types.EvidenceInstantiation, MatchedText: text})
	}
	return rec
}

func flagTypes(flags []types.RiskFlag) []string {
	var out []string
	for _, f := range flags {
		out = append(out, f.Type)
	}
	return out
}

func TestRecordRules(t *testing.T) {
	recent := now.AddDate(0, -1, 0)

	tests := []struct {
		name     string
		rec      *types.AgentRecord
		expected []string
	}{
		{
			name:     "clean record",
			rec:      owned(record("a", "crewai", 0.9, "Crew("), recent),
			expected: nil,
		},
		{
			name:     "no owner",
			rec:      record("a", "crewai", 0.9),
			expected: []string{TypeNoOwner},
		},
		{
			name:     "stale",
			rec:      owned(record("a", "crewai", 0.9), now.AddDate(0, -7, 0)),
			expected: []string{TypeStaleAgent},
		},
		{
			name:     "just under six months is fresh",
			rec:      owned(record("a", "crewai", 0.9), now.AddDate(0, -6, 1)),
			expected: nil,
		},
		{
			name:     "low confidence lower bound",
			rec:      owned(record("a", "crewai", 0.4), recent),
			expected: []string{TypeLowConfidence},
		},
		{
			name:     "low confidence upper bound excluded",
			rec:      owned(record("a", "crewai", 0.6), recent),
			expected: nil,
		},
		{
			name:     "below threshold not flagged",
			rec:      owned(record("a", "crewai", 0.3), recent),
			expected: nil,
		},
		{
			name:     "database from evidence",
			rec:      owned(record("a", "langchain", 0.9, "SQLDatabaseToolkit("), recent),
			expected: []string{TypeDatabaseAccess},
		},
		{
			name: "email from capability",
			rec: func() *types.AgentRecord {
				r := owned(record("a", "crewai", 0.9), recent)
				r.Capabilities = []types.Capability{types.CapabilityEmailSend}
				return r
			}(),
			expected: []string{TypeEmailCapability},
		},
		{
			name:     "spawning from evidence",
			rec:      owned(record("a", "autogen", 0.9, "GroupChatManager("), recent),
			expected: []string{TypeAgentSpawning},
		},
		{
			name:     "external api from evidence",
			rec:      owned(record("a", "langchain", 0.9, "requests.get("), recent),
			expected: []string{TypeExternalAPI},
		},
		{
			name: "external api ignores capability flag",
			rec: func() *types.AgentRecord {
				r := owned(record("a", "crewai", 0.9), recent)
				r.Capabilities = []types.Capability{types.CapabilityExternalAPI}
				return r
			}(),
			expected: nil,
		},
		{
			name:     "rules are not exclusive",
			rec:      record("a", "crewai", 0.5, "send_email(", "sqlite3.connect("),
			expected: []string{TypeNoOwner, TypeLowConfidence, TypeDatabaseAccess, TypeEmailCapability},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := NewEvaluator().Evaluate([]*types.AgentRecord{tt.rec}, now)
			assert.Equal(t, tt.expected, flagTypes(tt.rec.Risks))
			assert.Equal(t, len(tt.expected), summary.Total())
			for _, f := range tt.rec.Risks {
				assert.Equal(t, "a", f.AgentID)
				assert.True(t, f.Severity.IsValid())
			}
		})
	}
}

func TestEnvEvidenceIgnoredByVocabulary(t *testing.T) {
	rec := owned(record("a", "crewai", 0.9), now)
	rec.Evidence = append(rec.Evidence, types.DetectionEvidence{
		Type:        types.EvidenceEnvVar,
		MatchedText: "SENDGRID_API_KEY=[REDACTED]",
	})
	NewEvaluator().Evaluate([]*types.AgentRecord{rec}, now)
	assert.Empty(t, rec.Risks)
}

func manyRecords(n int, frameworks ...string) []*types.AgentRecord {
	var out []*types.AgentRecord
	for i := 0; i < n; i++ {
		fw := frameworks[i%len(frameworks)]
		out = append(out, owned(record(fmt.Sprintf("agent-%d", i), fw, 0.9), now))
	}
	return out
}

func TestScanRules(t *testing.T) {
	tests := []struct {
		name       string
		records    []*types.AgentRecord
		expected   []string
		severities []types.Severity
	}{
		{name: "no agents", records: nil, expected: nil},
		{name: "19 agents", records: manyRecords(19, "crewai"), expected: nil},
		{name: "20 agents", records: manyRecords(20, "crewai"), expected: nil},
		{
			name:       "25 agents",
			records:    manyRecords(25, "crewai"),
			expected:   []string{TypeHighAgentCount},
			severities: []types.Severity{types.SeverityHigh},
		},
		{name: "three frameworks", records: manyRecords(3, "crewai", "langchain", "autogen"), expected: nil},
		{
			name:       "four frameworks",
			records:    manyRecords(4, "crewai", "langchain", "autogen", "mcp"),
			expected:   []string{TypeFrameworkSprawl},
			severities: []types.Severity{types.SeverityMedium},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := NewEvaluator().Evaluate(tt.records, now)
			assert.Equal(t, tt.expected, flagTypes(summary.Details))
			for i, f := range summary.Details {
				assert.Equal(t, tt.severities[i], f.Severity)
				assert.Empty(t, f.AgentID)
			}
		})
	}
}

func TestEvaluate_SummaryOrderAndCounts(t *testing.T) {
	records := []*types.AgentRecord{
		record("first", "crewai", 0.9, "smtplib.SMTP("),
		owned(record("second", "langchain", 0.5), now),
		owned(record("third", "autogen", 0.9), now),
		owned(record("fourth", "mcp", 0.9), now),
	}

	summary := NewEvaluator().Evaluate(records, now)

	require.Len(t, summary.Details, 4)
	assert.Equal(t, "first", summary.Details[0].AgentID)
	assert.Equal(t, TypeNoOwner, summary.Details[0].Type)
	assert.Equal(t, TypeEmailCapability, summary.Details[1].Type)
	assert.Equal(t, "second", summary.Details[2].AgentID)
	assert.Equal(t, TypeFrameworkSprawl, summary.Details[3].Type)

	assert.Equal(t, 0, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.Equal(t, 2, summary.Medium)
	assert.Equal(t, 1, summary.Low)
}

func TestEvaluate_Idempotent(t *testing.T) {
	records := []*types.AgentRecord{record("a", "crewai", 0.5)}
	e := NewEvaluator()

	first := e.Evaluate(records, now)
	second := e.Evaluate(records, now)

	assert.Equal(t, first, second)
	assert.Len(t, records[0].Risks, 2)
}

func TestEvaluate_EmptyDetails(t *testing.T) {
	summary := NewEvaluator().Evaluate(nil, now)
	assert.NotNil(t, summary.Details)
	assert.Empty(t, summary.Details)
	assert.Equal(t, 0, summary.Total())
}
