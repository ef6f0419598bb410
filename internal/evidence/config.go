package evidence

import (
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/agentscan/internal/patterns"
	"github.com/steveyegge/agentscan/internal/types"
)

// AnalyzeConfig validates a framework configuration file and returns its
// config_file evidence. The file is ignored when it does not parse or has
// the wrong top-level shape.
func AnalyzeConfig(relPath string, content []byte) (Pending, bool) {
	name := baseName(relPath)
	framework, ok := patterns.FrameworkForConfigFile(name)
	if !ok {
		return Pending{}, false
	}
	if !validConfig(name, content) {
		log.Debug().Str("file", relPath).Str("framework", framework).Msg("ignoring malformed config file")
		return Pending{}, false
	}

	return Pending{
		Framework: framework,
		Name:      name,
		Evidence: types.DetectionEvidence{
			Type:        types.EvidenceConfigFile,
			Pattern:     name,
			MatchedText: types.TruncateMatch(relPath),
			FilePath:    relPath,
			Confidence:  ConfigContribution,
		},
	}, true
}

func validConfig(name string, content []byte) bool {
	if strings.HasPrefix(name, "OAI_CONFIG_LIST") {
		// A JSON array of model entries
		return gjson.ValidBytes(content) && gjson.ParseBytes(content).IsArray()
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return false
		}
		return len(doc) > 0
	case ".json":
		return gjson.ValidBytes(content) && gjson.ParseBytes(content).IsObject()
	}
	return false
}
