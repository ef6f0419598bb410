// Package evidence extracts corroborating signals from files that are not
// agent source code: dependency manifests, environment files and framework
// configuration files. Its output is not yet attached to any agent record.
package evidence

import (
	"regexp"
	"strings"

	"github.com/steveyegge/agentscan/internal/types"
)

// Contribution weights of auxiliary evidence.
const (
	DependencyContribution = 0.3
	ConfigContribution     = 0.7
)

// RedactedMarker replaces the value of any environment variable in matched
// text.
const RedactedMarker = "[REDACTED]"

// Pending is evidence waiting to be folded into the agent registry.
// Framework is empty for environment evidence, which applies to every record.
type Pending struct {
	Framework string
	Name      string // dependency or config file name
	Evidence  types.DetectionEvidence
}

// lineOf returns the 1-indexed first line mentioning name as a whole package
// name, or 0 when it cannot be located.
func lineOf(content, name string) int {
	re, err := regexp.Compile(`(?:^|[^A-Za-z0-9._-])` + regexp.QuoteMeta(name) + `(?:[^A-Za-z0-9._-]|$)`)
	if err != nil {
		return 0
	}
	for i, line := range strings.Split(content, "\n") {
		if re.MatchString(line) {
			return i + 1
		}
	}
	return 0
}

func baseName(relPath string) string {
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
