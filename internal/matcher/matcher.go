// Package matcher applies framework pattern sets to file content and reduces
// the resulting evidence to a confidence score.
package matcher

import (
	"bufio"
	"math"
	"strings"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// DefaultThreshold is the minimum aggregate confidence for a detection.
const DefaultThreshold = 0.4

// CorroborationBonus is added when evidence spans two or more types.
const CorroborationBonus = 0.10

// maxLineLength bounds a single scanned line. Files are capped at 1 MB before
// they reach the matcher, so one line can never be longer than this.
const maxLineLength = 1<<20 + 1

// Detection is a framework match in one file that met the threshold.
type Detection struct {
	Framework  string
	Language   types.Language
	FilePath   string
	Line       int
	Column     int
	Confidence float64
	Evidence   []types.DetectionEvidence
}

type hit struct {
	line int
	text string
}

// Match applies every pattern of set to content. Each pattern yields at most
// one evidence item: the first line it matches, 1-indexed. Evidence is
// returned imports first, then instantiations, in table order.
func Match(path, content string, set types.FrameworkPatternSet) []types.DetectionEvidence {
	defs := make([]types.PatternDefinition, 0, len(set.Imports)+len(set.Instantiations))
	defs = append(defs, set.Imports...)
	defs = append(defs, set.Instantiations...)

	hits := scan(content, defs)

	var evidence []types.DetectionEvidence
	for i, def := range defs {
		h, ok := hits[i]
		if !ok {
			continue
		}
		evidence = append(evidence, types.DetectionEvidence{
			Type:        def.Type,
			Pattern:     def.Pattern.String(),
			MatchedText: types.TruncateMatch(h.text),
			FilePath:    path,
			Line:        h.line,
			Confidence:  def.Confidence,
		})
	}
	return evidence
}

// scan walks content once, recording the first hit of each definition.
func scan(content string, defs []types.PatternDefinition) map[int]hit {
	hits := make(map[int]hit, len(defs))

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		for i, def := range defs {
			if _, done := hits[i]; done {
				continue
			}
			loc := def.Pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			hits[i] = hit{line: lineNum, text: line[loc[0]:loc[1]]}
		}

		if len(hits) == len(defs) {
			break
		}
	}

	return hits
}

// Aggregate reduces evidence for one (framework, file) pair to a score in
// [0, 1]: the sum of contributions, plus CorroborationBonus when two or more
// evidence types are present, rounded to two decimals.
func Aggregate(evidence []types.DetectionEvidence) float64 {
	if len(evidence) == 0 {
		return 0
	}

	var sum float64
	kinds := make(map[types.EvidenceType]struct{})
	for _, ev := range evidence {
		sum += ev.Confidence
		kinds[ev.Type] = struct{}{}
	}
	if len(kinds) >= 2 {
		sum += CorroborationBonus
	}
	return Clamp(Round(sum))
}

// Round rounds v to two decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp limits v to [0, 1].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// DetectCapabilities returns the capabilities whose vocabulary appears in
// content, in vocabulary order.
func DetectCapabilities(content string) []types.Capability {
	var caps []types.Capability
	for _, c := range patterns.Capabilities() {
		if c.Pattern.MatchString(content) {
			caps = append(caps, c.Capability)
		}
	}
	return caps
}

// MatchFile runs every pattern set applicable to lang against content and
// returns the detections whose aggregate confidence reaches threshold.
func MatchFile(path string, lang types.Language, content string, threshold float64) []Detection {
	var detections []Detection

	for _, set := range patterns.ForLanguage(lang) {
		evidence := Match(path, content, set)
		if len(evidence) == 0 {
			continue
		}

		confidence := Aggregate(evidence)
		if confidence < threshold {
			continue
		}

		d := Detection{
			Framework:  set.Framework,
			Language:   lang,
			FilePath:   path,
			Confidence: confidence,
			Evidence:   evidence,
		}
		d.Line, d.Column = firstLocation(content, evidence)
		detections = append(detections, d)
	}

	return detections
}

// firstLocation returns the earliest line among the evidence and the column
// of the match on that line.
func firstLocation(content string, evidence []types.DetectionEvidence) (int, int) {
	first := evidence[0]
	for _, ev := range evidence[1:] {
		if ev.Line < first.Line {
			first = ev
		}
	}

	lines := strings.SplitN(content, "\n", first.Line+1)
	if first.Line < 1 || first.Line > len(lines) {
		return first.Line, 0
	}
	col := strings.Index(lines[first.Line-1], strings.TrimSuffix(first.MatchedText, "..."))
	if col < 0 {
		return first.Line, 0
	}
	return first.Line, col + 1
}
