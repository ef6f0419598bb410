// Package patterns holds the declarative table of agent-framework detection
// rules together with the environment and capability vocabularies. Everything
// here is built at init and read-only afterwards.
package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/agentscan/internal/types"
)

var (
	byFramework  map[string]int
	byConfigFile map[string]string
	byDependency map[string]string
)

func init() {
	byFramework = make(map[string]int, len(frameworks))
	byConfigFile = make(map[string]string)
	byDependency = make(map[string]string)

	for i := range frameworks {
		set := &frameworks[i]
		if err := set.Validate(); err != nil {
			panic(fmt.Sprintf("patterns: %v", err))
		}
		if _, dup := byFramework[set.Framework]; dup {
			panic(fmt.Sprintf("patterns: duplicate framework %q", set.Framework))
		}
		byFramework[set.Framework] = i

		for _, name := range set.ConfigFiles {
			byConfigFile[name] = set.Framework
		}
		for _, dep := range set.Dependencies {
			byDependency[NormalizeDependency(dep)] = set.Framework
		}
	}
}

// All returns every framework pattern set in table order.
func All() []types.FrameworkPatternSet {
	out := make([]types.FrameworkPatternSet, len(frameworks))
	copy(out, frameworks)
	return out
}

// Lookup returns the pattern set for a framework identifier.
func Lookup(framework string) (types.FrameworkPatternSet, bool) {
	i, ok := byFramework[framework]
	if !ok {
		return types.FrameworkPatternSet{}, false
	}
	return frameworks[i], true
}

// DisplayName returns the human name for a framework, or the identifier
// itself when the framework is unknown.
func DisplayName(framework string) string {
	if set, ok := Lookup(framework); ok && set.DisplayName != "" {
		return set.DisplayName
	}
	return framework
}

// ForLanguage returns the sets applicable to lang. TypeScript and JavaScript
// files receive the patterns of both languages.
func ForLanguage(lang types.Language) []types.FrameworkPatternSet {
	var out []types.FrameworkPatternSet
	for _, set := range frameworks {
		if set.SupportsLanguage(lang) {
			out = append(out, set)
			continue
		}
		switch lang {
		case types.LanguageTypeScript:
			if set.SupportsLanguage(types.LanguageJavaScript) {
				out = append(out, set)
			}
		case types.LanguageJavaScript:
			if set.SupportsLanguage(types.LanguageTypeScript) {
				out = append(out, set)
			}
		}
	}
	return out
}

// ConfigFileNames returns the sorted union of framework config basenames.
func ConfigFileNames() []string {
	names := make([]string, 0, len(byConfigFile))
	for name := range byConfigFile {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FrameworkForConfigFile maps a config basename to the framework it implies.
func FrameworkForConfigFile(name string) (string, bool) {
	fw, ok := byConfigFile[name]
	return fw, ok
}

// manifestNames are the dependency manifests the evidence analyzers parse.
// requirements*.txt variants are recognised by IsDependencyFile.
var manifestNames = []string{
	"Pipfile",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"requirements.txt",
}

// DependencyFileNames returns the dependency-manifest basenames.
func DependencyFileNames() []string {
	out := make([]string, len(manifestNames))
	copy(out, manifestNames)
	return out
}

// IsDependencyFile reports whether a basename is a dependency manifest.
func IsDependencyFile(name string) bool {
	for _, m := range manifestNames {
		if name == m {
			return true
		}
	}
	return strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt")
}

// FrameworkForDependency maps a package name from any supported ecosystem to
// a framework.
func FrameworkForDependency(name string) (string, bool) {
	fw, ok := byDependency[NormalizeDependency(name)]
	return fw, ok
}

// NormalizeDependency lowercases a package name and folds underscores and
// dots into hyphens the way Python packaging compares names. Scoped npm names
// and Go module paths keep their separators.
func NormalizeDependency(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "@") || strings.Contains(name, "/") {
		return name
	}
	return strings.NewReplacer("_", "-", ".", "-").Replace(name)
}
