package evidence

import (
	"bufio"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/mod/modfile"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// pep508Name extracts the distribution name from a requirement specifier
// such as "crewai[tools]>=0.30; python_version>'3.9'".
var pep508Name = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

// packageJSONSections are the package.json objects holding dependencies.
var packageJSONSections = []string{
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
}

// AnalyzeManifest returns dependency evidence for every framework package
// declared in a manifest. Malformed manifests yield nothing.
func AnalyzeManifest(relPath string, content []byte) []Pending {
	name := baseName(relPath)

	var deps []string
	switch {
	case name == "pyproject.toml":
		deps = pyprojectDeps(relPath, content)
	case name == "Pipfile":
		deps = pipfileDeps(relPath, content)
	case name == "package.json":
		deps = packageJSONDeps(relPath, content)
	case name == "go.mod":
		deps = goModDeps(relPath, content)
	case patterns.IsDependencyFile(name):
		return requirementsEvidence(relPath, content)
	default:
		return nil
	}

	text := string(content)
	var out []Pending
	seen := make(map[string]bool)
	for _, dep := range deps {
		p, ok := dependencyEvidence(relPath, dep, lineOf(text, dep))
		if !ok || seen[p.Framework+"\x00"+p.Name] {
			continue
		}
		seen[p.Framework+"\x00"+p.Name] = true
		out = append(out, p)
	}
	return out
}

func dependencyEvidence(relPath, dep string, line int) (Pending, bool) {
	framework, ok := patterns.FrameworkForDependency(dep)
	if !ok {
		return Pending{}, false
	}
	normalized := patterns.NormalizeDependency(dep)
	return Pending{
		Framework: framework,
		Name:      normalized,
		Evidence: types.DetectionEvidence{
			Type:        types.EvidenceDependency,
			Pattern:     normalized,
			MatchedText: types.TruncateMatch(dep),
			FilePath:    relPath,
			Line:        line,
			Confidence:  DependencyContribution,
		},
	}, true
}

// requirementsEvidence parses a pip requirements file line by line.
func requirementsEvidence(relPath string, content []byte) []Pending {
	var out []Pending
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		m := pep508Name.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p, ok := dependencyEvidence(relPath, m[1], lineNum)
		if !ok || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		p.Evidence.MatchedText = types.TruncateMatch(line)
		out = append(out, p)
	}
	return out
}

func pyprojectDeps(relPath string, content []byte) []string {
	var doc pyproject
	if err := toml.Unmarshal(content, &doc); err != nil {
		log.Debug().Err(err).Str("file", relPath).Msg("skipping malformed pyproject.toml")
		return nil
	}

	var deps []string
	for _, spec := range doc.Project.Dependencies {
		if m := pep508Name.FindStringSubmatch(spec); m != nil {
			deps = append(deps, m[1])
		}
	}
	for _, group := range sortedKeys(doc.Project.OptionalDependencies) {
		for _, spec := range doc.Project.OptionalDependencies[group] {
			if m := pep508Name.FindStringSubmatch(spec); m != nil {
				deps = append(deps, m[1])
			}
		}
	}

	poetry := doc.Tool.Poetry
	deps = append(deps, sortedKeys(poetry.Dependencies)...)
	deps = append(deps, sortedKeys(poetry.DevDependencies)...)
	for _, group := range sortedKeys(poetry.Group) {
		deps = append(deps, sortedKeys(poetry.Group[group].Dependencies)...)
	}
	return deps
}

func pipfileDeps(relPath string, content []byte) []string {
	var doc pipfile
	if err := toml.Unmarshal(content, &doc); err != nil {
		log.Debug().Err(err).Str("file", relPath).Msg("skipping malformed Pipfile")
		return nil
	}
	return append(sortedKeys(doc.Packages), sortedKeys(doc.DevPackages)...)
}

func packageJSONDeps(relPath string, content []byte) []string {
	if !gjson.ValidBytes(content) {
		log.Debug().Str("file", relPath).Msg("skipping malformed package.json")
		return nil
	}

	var deps []string
	for _, section := range packageJSONSections {
		gjson.GetBytes(content, section).ForEach(func(key, _ gjson.Result) bool {
			deps = append(deps, key.String())
			return true
		})
	}
	return deps
}

func goModDeps(relPath string, content []byte) []string {
	mod, err := modfile.Parse(relPath, content, nil)
	if err != nil {
		log.Debug().Err(err).Str("file", relPath).Msg("skipping malformed go.mod")
		return nil
	}

	var deps []string
	for _, req := range mod.Require {
		deps = append(deps, req.Mod.Path)
	}
	return deps
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
