// Package risk evaluates governance rules over detected agent records.
package risk

import (
	"time"

	"github.com/steveyegge/agentscan/internal/types"
)

// Evaluator applies per-record and scan-level rules.
type Evaluator struct {
	Rules     []Rule
	ScanRules []ScanRule
}

// NewEvaluator creates an evaluator with the default rule set.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Rules:     DefaultRules(),
		ScanRules: DefaultScanRules(),
	}
}

// Evaluate runs every rule, replaces each record's Risks with the flags that
// apply to it, and returns the per-severity counts with the flattened flag
// list: record flags in record order, then scan-level flags.
func (e *Evaluator) Evaluate(records []*types.AgentRecord, now time.Time) types.RiskSummary {
	summary := types.RiskSummary{Details: []types.RiskFlag{}}

	for _, rec := range records {
		var flags []types.RiskFlag
		for _, rule := range e.Rules {
			desc, ok := rule.Check(rec, now)
			if !ok {
				continue
			}
			flags = append(flags, types.RiskFlag{
				Severity:    rule.Severity,
				Type:        rule.Type,
				Description: desc,
				AgentID:     rec.ID,
			})
		}
		rec.Risks = flags
		for _, f := range flags {
			summary.Add(f)
		}
	}

	for _, rule := range e.ScanRules {
		if desc, ok := rule.Check(records); ok {
			summary.Add(types.RiskFlag{
				Severity:    rule.Severity,
				Type:        rule.Type,
				Description: desc,
			})
		}
	}

	return summary
}
