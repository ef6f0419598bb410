package risk

import (
	"fmt"
	"regexp"
	"time"

	"github.com/steveyegge/agentscan/internal/types"
)

// Risk type tags.
const (
	TypeNoOwner         = "no-owner"
	TypeStaleAgent      = "stale-agent"
	TypeLowConfidence   = "low-confidence"
	TypeDatabaseAccess  = "database-access"
	TypeEmailCapability = "email-capability"
	TypeAgentSpawning   = "agent-spawning"
	TypeExternalAPI     = "external-api"
	TypeFrameworkSprawl = "framework-sprawl"
	TypeHighAgentCount  = "high-agent-count"
)

// Thresholds used by the default rules.
const (
	StaleAfterMonths     = 6
	LowConfidenceFloor   = 0.4
	LowConfidenceCeiling = 0.6
	SprawlFrameworks     = 4
	MaxAgents            = 20
)

// Rule is a per-record strategy. Check returns the flag description when the
// rule applies.
type Rule struct {
	Type     string
	Severity types.Severity
	Check    func(rec *types.AgentRecord, now time.Time) (string, bool)
}

// ScanRule is evaluated once over the whole agent set.
type ScanRule struct {
	Type     string
	Severity types.Severity
	Check    func(records []*types.AgentRecord) (string, bool)
}

var (
	databaseVocab = regexp.MustCompile(`(?i)(?:\bsql|database|postgres|mysql|sqlite|mongo|redis|supabase|dynamodb|\bprisma\b)`)
	emailVocab    = regexp.MustCompile(`(?i)(?:smtp|send_?e?mail|sendgrid|gmail|mailgun|nodemailer|\bemail)`)
	spawnVocab    = regexp.MustCompile(`(?i)(?:sub_?agent|spawn|handoff|delegat|groupchat|supervisor|swarm|agenttool)`)
	httpVocab     = regexp.MustCompile(`(?i)(?:\brequests\.(?:get|post|put|patch|delete)|httpx|aiohttp|urllib|\bfetch\s*\(|axios|http\.(?:get|post|newrequest)|https?://)`)
)

// DefaultRules returns the per-record rules in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:     TypeNoOwner,
			Severity: types.SeverityMedium,
			Check: func(rec *types.AgentRecord, _ time.Time) (string, bool) {
				if rec.Metadata.Owner != "" {
					return "", false
				}
				return "Agent has no identifiable owner in revision history", true
			},
		},
		{
			Type:     TypeStaleAgent,
			Severity: types.SeverityLow,
			Check: func(rec *types.AgentRecord, now time.Time) (string, bool) {
				lm := rec.Metadata.LastModified
				if lm == nil || !lm.Before(now.AddDate(0, -StaleAfterMonths, 0)) {
					return "", false
				}
				return fmt.Sprintf("Agent not modified since %s (over %d months)", lm.Format("2006-01-02"), StaleAfterMonths), true
			},
		},
		{
			Type:     TypeLowConfidence,
			Severity: types.SeverityLow,
			Check: func(rec *types.AgentRecord, _ time.Time) (string, bool) {
				if rec.Confidence < LowConfidenceFloor || rec.Confidence >= LowConfidenceCeiling {
					return "", false
				}
				return fmt.Sprintf("Detection confidence %.2f is below %.2f; verify manually", rec.Confidence, LowConfidenceCeiling), true
			},
		},
		{
			Type:     TypeDatabaseAccess,
			Severity: types.SeverityMedium,
			Check:    vocabularyCheck(databaseVocab, types.CapabilityDatabaseAccess, "Agent appears to access a database"),
		},
		{
			Type:     TypeEmailCapability,
			Severity: types.SeverityHigh,
			Check:    vocabularyCheck(emailVocab, types.CapabilityEmailSend, "Agent appears able to send email"),
		},
		{
			Type:     TypeAgentSpawning,
			Severity: types.SeverityMedium,
			Check:    vocabularyCheck(spawnVocab, types.CapabilityAgentSpawning, "Agent appears to create or delegate to sub-agents"),
		},
		{
			Type:     TypeExternalAPI,
			Severity: types.SeverityLow,
			Check:    vocabularyCheck(httpVocab, "", "Agent appears to call external HTTP APIs"),
		},
	}
}

// DefaultScanRules returns the scan-level rules in reporting order.
func DefaultScanRules() []ScanRule {
	return []ScanRule{
		{
			Type:     TypeFrameworkSprawl,
			Severity: types.SeverityMedium,
			Check: func(records []*types.AgentRecord) (string, bool) {
				frameworks := make(map[string]bool)
				for _, rec := range records {
					frameworks[rec.Framework] = true
				}
				if len(frameworks) < SprawlFrameworks {
					return "", false
				}
				return fmt.Sprintf("%d distinct agent frameworks in use", len(frameworks)), true
			},
		},
		{
			Type:     TypeHighAgentCount,
			Severity: types.SeverityHigh,
			Check: func(records []*types.AgentRecord) (string, bool) {
				if len(records) <= MaxAgents {
					return "", false
				}
				return fmt.Sprintf("%d agents detected (more than %d)", len(records), MaxAgents), true
			},
		},
	}
}

// vocabularyCheck matches vocab against evidence text and, when capability
// is set, also fires on the capability flag.
func vocabularyCheck(vocab *regexp.Regexp, capability types.Capability, description string) func(*types.AgentRecord, time.Time) (string, bool) {
	return func(rec *types.AgentRecord, _ time.Time) (string, bool) {
		if capability != "" && rec.HasCapability(capability) {
			return description, true
		}
		for _, ev := range rec.Evidence {
			if ev.Type == types.EvidenceEnvVar {
				continue
			}
			if vocab.MatchString(ev.MatchedText) {
				return description, true
			}
		}
		return "", false
	}
}
