// Package discovery enumerates the files under a scan root that the detection
// pipeline should read.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// DefaultMaxFiles caps the number of candidates returned by Discover.
const DefaultMaxFiles = 10000

// Kind classifies a candidate file.
type Kind string

const (
	KindSource   Kind = "source"
	KindConfig   Kind = "config"
	KindManifest Kind = "manifest"
	KindEnv      Kind = "env"
)

// SkipDirs are never descended into, regardless of ignore files.
var SkipDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "bower_components", "vendor",
	"__pycache__", ".venv", "venv", ".tox", ".mypy_cache", ".pytest_cache",
	"dist", "build", "target", "out", ".next", ".nuxt", "coverage",
}

// Candidate is a file selected for reading.
type Candidate struct {
	Path     string // absolute path
	RelPath  string // slash-separated, relative to the scan root
	Kind     Kind
	Language types.Language // set for KindSource
}

// Options configures Discover.
type Options struct {
	// MaxFiles caps the candidate count (0 = DefaultMaxFiles)
	MaxFiles int

	// Exclude holds extra glob patterns matched against the relative path and
	// the basename. A trailing "/" matches a directory and everything below it.
	Exclude []string
}

// Result is the outcome of a discovery walk.
type Result struct {
	Root      string
	Files     []Candidate
	Truncated bool

	// Excluded lists the directory names and patterns that pruned the walk.
	Excluded []string
}

// Count returns the number of candidates of kind k.
func (r *Result) Count(k Kind) int {
	n := 0
	for _, f := range r.Files {
		if f.Kind == k {
			n++
		}
	}
	return n
}

var errCapReached = errors.New("file cap reached")

// Discover walks root in lexical order and returns the candidate files.
func Discover(ctx context.Context, root string, opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", absRoot)
	}

	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	ignores := loadIgnoreFiles(absRoot)
	skip := make(map[string]bool, len(SkipDirs))
	for _, d := range SkipDirs {
		skip[d] = true
	}

	result := &Result{
		Root:     absRoot,
		Excluded: append(append([]string{}, SkipDirs...), opts.Exclude...),
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than failing the walk
			if path != absRoot {
				log.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skip[d.Name()] || ignores.matches(rel, true) || excluded(rel, opts.Exclude, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ignores.matches(rel, false) || excluded(rel, opts.Exclude, false) {
			return nil
		}

		kind, lang, ok := Classify(d.Name())
		if !ok {
			return nil
		}

		if len(result.Files) >= maxFiles {
			result.Truncated = true
			return errCapReached
		}
		result.Files = append(result.Files, Candidate{
			Path:     path,
			RelPath:  rel,
			Kind:     kind,
			Language: lang,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errCapReached) {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	return result, nil
}

// Classify decides whether a basename is a candidate and of what kind.
func Classify(name string) (Kind, types.Language, bool) {
	if _, ok := patterns.FrameworkForConfigFile(name); ok {
		return KindConfig, "", true
	}
	if patterns.IsDependencyFile(name) {
		return KindManifest, "", true
	}
	if IsEnvFile(name) {
		return KindEnv, "", true
	}
	if lang, ok := LanguageForPath(name); ok {
		return KindSource, lang, true
	}
	return "", "", false
}

// IsEnvFile reports whether name is a dotenv file or follows a Dockerfile
// naming convention.
func IsEnvFile(name string) bool {
	if name == ".env" || strings.HasPrefix(name, ".env.") {
		return true
	}
	return IsDockerfile(name)
}

// IsDockerfile reports whether name follows a Dockerfile naming convention.
func IsDockerfile(name string) bool {
	return name == "Dockerfile" ||
		strings.HasPrefix(name, "Dockerfile.") ||
		strings.HasSuffix(strings.ToLower(name), ".dockerfile")
}

// excluded checks caller-supplied patterns against a relative path.
func excluded(rel string, exclude []string, isDir bool) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}

	for _, pattern := range exclude {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}

		// Directory patterns (e.g., "fixtures/")
		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			if isDir && (rel == dir || wildcard.Match(dir, rel) || wildcard.Match(dir, base)) {
				return true
			}
			if strings.HasPrefix(rel, pattern) {
				return true
			}
			continue
		}

		if wildcard.Match(pattern, rel) || wildcard.Match(pattern, base) {
			return true
		}
	}
	return false
}
