// Package scanner runs the detection pipeline over a directory tree:
// discovery, pattern matching, auxiliary evidence, ownership and risk.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/agentscan/internal/config"
	"github.com/steveyegge/agentscan/internal/discovery"
	"github.com/steveyegge/agentscan/internal/evidence"
	"github.com/steveyegge/agentscan/internal/git"
	"github.com/steveyegge/agentscan/internal/matcher"
	"github.com/steveyegge/agentscan/internal/ownership"
	"github.com/steveyegge/agentscan/internal/registry"
	"github.com/steveyegge/agentscan/internal/risk"
	"github.com/steveyegge/agentscan/internal/types"
)

// Version is recorded in every scan result.
const Version = "0.3.0"

// MaxFileSize is the largest file that is read; larger files are skipped.
const MaxFileSize = 1 << 20

// ErrRemoteScan is returned when a scan targets a remote repository.
var ErrRemoteScan = fmt.Errorf("remote repository scanning: %w", errors.ErrUnsupported)

var (
	urlTarget = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	scpTarget = regexp.MustCompile(`^[\w.-]+@[\w.-]+:`)
)

// Options configures one scan.
type Options struct {
	// Path is the local directory to scan.
	Path string

	// RemoteURL requests a remote scan, which is not supported.
	RemoteURL string

	config.Config

	// Progress is called on every phase transition and after each file.
	Progress Observer
}

// DefaultOptions returns options for scanning path with default settings.
func DefaultOptions(path string) Options {
	return Options{Path: path, Config: config.Default()}
}

// Scanner runs scans. A Scanner is safe to reuse across sequential scans.
type Scanner struct {
	history   git.History
	evaluator *risk.Evaluator

	// Clock returns the current time; it drives timestamps and staleness.
	Clock func() time.Time
}

// New creates a scanner. history may be nil when git is not available.
func New(history git.History) *Scanner {
	return &Scanner{
		history:   history,
		evaluator: risk.NewEvaluator(),
		Clock:     time.Now,
	}
}

// fileMatch is the pure per-file outcome of matching a source file.
type fileMatch struct {
	detections   []matcher.Detection
	capabilities []types.Capability
	read         bool
}

// Scan runs the full pipeline over opts.Path.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*types.ScanResult, error) {
	if target, ok := remoteTarget(opts); ok {
		return nil, fmt.Errorf("%w: %s", ErrRemoteScan, target)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	start := s.Clock()
	track := &tracker{observer: opts.Progress}

	track.phase(PhaseDiscovering)
	disc, err := discovery.Discover(ctx, opts.Path, discovery.Options{
		MaxFiles: opts.MaxFiles,
		Exclude:  opts.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	log.Debug().Int("files", len(disc.Files)).Bool("truncated", disc.Truncated).Msg("discovery complete")
	if disc.Truncated {
		log.Warn().Int("max_files", opts.MaxFiles).Msg("file cap reached, results are partial")
	}

	track.current.FilesDiscovered = len(disc.Files)
	track.phase(PhaseScanning)

	reg := registry.New()
	var sources, manifests, envs, configs []discovery.Candidate
	for _, c := range disc.Files {
		switch c.Kind {
		case discovery.KindSource:
			sources = append(sources, c)
		case discovery.KindManifest:
			manifests = append(manifests, c)
		case discovery.KindEnv:
			envs = append(envs, c)
		case discovery.KindConfig:
			configs = append(configs, c)
		}
	}

	skipped := 0
	matches, err := s.matchSources(ctx, sources, opts)
	if err != nil {
		return nil, err
	}
	for i, m := range matches {
		if !m.read {
			skipped++
			continue
		}
		for _, d := range m.detections {
			reg.Upsert(d, m.capabilities)
		}
		track.file(sources[i].RelPath, reg.Len())
	}

	// Auxiliary files are read while scanning; their evidence is held back
	// and folded in during enriching.
	var depPending, envPending, configPending []evidence.Pending
	aux := []struct {
		files   []discovery.Candidate
		pending *[]evidence.Pending
		analyze func(c discovery.Candidate, content []byte) []evidence.Pending
	}{
		{files: manifests, pending: &depPending, analyze: func(c discovery.Candidate, content []byte) []evidence.Pending {
			return evidence.AnalyzeManifest(c.RelPath, content)
		}},
		{files: envs, pending: &envPending, analyze: func(c discovery.Candidate, content []byte) []evidence.Pending {
			return evidence.AnalyzeEnv(c.RelPath, content)
		}},
		{files: configs, pending: &configPending, analyze: func(c discovery.Candidate, content []byte) []evidence.Pending {
			if p, ok := evidence.AnalyzeConfig(c.RelPath, content); ok {
				return []evidence.Pending{p}
			}
			return nil
		}},
	}
	for _, stage := range aux {
		for _, c := range stage.files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			content, ok := readCandidate(c)
			if !ok {
				skipped++
				continue
			}
			*stage.pending = append(*stage.pending, stage.analyze(c, content)...)
			track.file(c.RelPath, reg.Len())
		}
	}

	track.phase(PhaseEnriching)

	// Fold order is dependencies, environment, configuration.
	for _, p := range depPending {
		reg.FoldDependency(p)
	}
	for _, p := range envPending {
		reg.FoldEnv(p)
	}
	for _, p := range configPending {
		reg.FoldConfig(p)
	}
	if dropped := reg.Prune(opts.ConfidenceThreshold); dropped > 0 {
		log.Debug().Int("dropped", dropped).Float64("threshold", opts.ConfidenceThreshold).Msg("dropped records below threshold")
	}

	records := reg.Records()
	sortRecords(records)

	owned := ownership.NewEnricher(s.history, disc.Root).Enrich(ctx, records)
	log.Debug().Int("records", len(records)).Int("owned", owned).Msg("ownership enrichment complete")

	risks := s.evaluator.Evaluate(records, start)

	result := &types.ScanResult{
		Summary: types.ScanSummary{
			TotalAgents:     len(records),
			FilesDiscovered: len(disc.Files),
			FilesScanned:    track.current.FilesScanned,
			FilesSkipped:    skipped,
			Timestamp:       start,
			ScanPath:        disc.Root,
		},
		Agents:             make([]types.AgentRecord, 0, len(records)),
		FrameworkBreakdown: make(map[string]int),
		RiskSummary:        risks,
		Metadata: types.ScanMetadata{
			ScanID:              ulid.Make().String(),
			PathsScanned:        []string{disc.Root},
			ExcludedPaths:       disc.Excluded,
			Truncated:           disc.Truncated,
			ConfidenceThreshold: opts.ConfidenceThreshold,
			ToolVersion:         Version,
		},
	}
	for _, rec := range records {
		result.Agents = append(result.Agents, *rec)
		result.FrameworkBreakdown[rec.Framework]++
	}
	result.Summary.FrameworksDetected = len(result.FrameworkBreakdown)
	result.Summary.Duration = s.Clock().Sub(start)

	track.current.AgentsFound = len(records)
	track.phase(PhaseComplete)

	log.Info().
		Str("scan_id", result.Metadata.ScanID).
		Int("agents", result.Summary.TotalAgents).
		Int("files", result.Summary.FilesScanned).
		Int("risks", risks.Total()).
		Dur("duration", result.Summary.Duration).
		Msg("scan complete")

	return result, nil
}

// matchSources reads and matches every source file. With more than one
// worker, files are matched concurrently; the returned slice is always in
// discovery order.
func (s *Scanner) matchSources(ctx context.Context, sources []discovery.Candidate, opts Options) ([]fileMatch, error) {
	results := make([]fileMatch, len(sources))

	if opts.Workers <= 1 {
		for i, c := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = matchSource(c, opts.ConfidenceThreshold)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = matchSource(c, opts.ConfidenceThreshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func matchSource(c discovery.Candidate, threshold float64) fileMatch {
	content, ok := readCandidate(c)
	if !ok {
		return fileMatch{}
	}
	text := string(content)
	m := fileMatch{
		detections: matcher.MatchFile(c.RelPath, c.Language, text, threshold),
		read:       true,
	}
	if len(m.detections) > 0 {
		m.capabilities = matcher.DetectCapabilities(text)
	}
	return m
}

// readCandidate returns the file content, or false when the file is
// unreadable or larger than MaxFileSize.
func readCandidate(c discovery.Candidate) ([]byte, bool) {
	info, err := os.Stat(c.Path)
	if err != nil {
		log.Debug().Err(err).Str("file", c.RelPath).Msg("skipping unreadable file")
		return nil, false
	}
	if info.Size() > MaxFileSize {
		log.Debug().Int64("size", info.Size()).Str("file", c.RelPath).Msg("skipping oversized file")
		return nil, false
	}
	content, err := os.ReadFile(c.Path)
	if err != nil {
		log.Debug().Err(err).Str("file", c.RelPath).Msg("skipping unreadable file")
		return nil, false
	}
	return content, true
}

// sortRecords orders by confidence descending, then framework, then path.
func sortRecords(records []*types.AgentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Framework != b.Framework {
			return a.Framework < b.Framework
		}
		return a.Location.FilePath < b.Location.FilePath
	})
}

// remoteTarget reports the remote location a scan asks for, if any.
func remoteTarget(opts Options) (string, bool) {
	if opts.RemoteURL != "" {
		return opts.RemoteURL, true
	}
	if IsRemote(opts.Path) {
		return opts.Path, true
	}
	return "", false
}

// IsRemote reports whether target looks like a URL or an scp-style git
// remote rather than a local path.
func IsRemote(target string) bool {
	target = strings.TrimSpace(target)
	return urlTarget.MatchString(target) || scpTarget.MatchString(target)
}
