package evidence

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/steveyegge/agentscan/internal/discovery"
	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// dockerEnvLine matches ENV and ARG instructions.
var dockerEnvLine = regexp.MustCompile(`(?i)^\s*(ENV|ARG)\s+(.+)$`)

type envVar struct {
	name  string
	value string
	line  int
}

// AnalyzeEnv returns one redacted evidence item per provider key pattern
// found with a non-empty value in a dotenv file or Dockerfile. Values never
// leave this function.
func AnalyzeEnv(relPath string, content []byte) []Pending {
	var vars []envVar
	if discovery.IsDockerfile(baseName(relPath)) {
		vars = dockerfileVars(content)
	} else {
		vars = dotenvVars(relPath, content)
	}

	var out []Pending
	seen := make(map[string]bool)
	for _, v := range vars {
		if strings.TrimSpace(v.value) == "" {
			continue
		}
		for _, def := range patterns.EnvPatterns() {
			if !def.Pattern.MatchString(v.name) {
				continue
			}
			key := def.Pattern.String()
			if seen[key] {
				break
			}
			seen[key] = true
			out = append(out, Pending{
				Name: v.name,
				Evidence: types.DetectionEvidence{
					Type:        types.EvidenceEnvVar,
					Pattern:     key,
					MatchedText: v.name + "=" + RedactedMarker,
					FilePath:    relPath,
					Line:        v.line,
					Confidence:  def.Confidence,
				},
			})
			break
		}
	}
	return out
}

func dotenvVars(relPath string, content []byte) []envVar {
	parsed, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		log.Debug().Err(err).Str("file", relPath).Msg("skipping malformed env file")
		return nil
	}

	text := string(content)
	vars := make([]envVar, 0, len(parsed))
	for _, name := range sortedKeys(parsed) {
		vars = append(vars, envVar{name: name, value: parsed[name], line: dotenvLine(text, name)})
	}
	return vars
}

func dotenvLine(content, name string) int {
	re := regexp.MustCompile(`^\s*(?:export\s+)?` + regexp.QuoteMeta(name) + `\s*[=:]`)
	for i, line := range strings.Split(content, "\n") {
		if re.MatchString(line) {
			return i + 1
		}
	}
	return 0
}

// dockerfileVars reads ENV and ARG instructions, supporting both the
// "KEY=value ..." and legacy "KEY value" forms.
func dockerfileVars(content []byte) []envVar {
	var vars []envVar

	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		m := dockerEnvLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		args := strings.TrimSpace(m[2])
		if args == "" {
			continue
		}

		if !strings.Contains(strings.Fields(args)[0], "=") {
			// Legacy form: ENV KEY value with spaces
			name, value, _ := strings.Cut(args, " ")
			vars = append(vars, envVar{name: name, value: strings.TrimSpace(value), line: lineNum})
			continue
		}

		for _, field := range strings.Fields(args) {
			name, value, ok := strings.Cut(field, "=")
			if !ok {
				vars = append(vars, envVar{name: field, line: lineNum})
				continue
			}
			vars = append(vars, envVar{name: name, value: strings.Trim(value, `"'`), line: lineNum})
		}
	}
	return vars
}
