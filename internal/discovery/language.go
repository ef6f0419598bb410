package discovery

import (
	"path/filepath"
	"strings"

	"github.com/steveyegge/agentscan/internal/types"
)

var languageMap = map[string]types.Language{
	".py":   types.LanguagePython,
	".ts":   types.LanguageTypeScript,
	".tsx":  types.LanguageTypeScript,
	".mts":  types.LanguageTypeScript,
	".cts":  types.LanguageTypeScript,
	".js":   types.LanguageJavaScript,
	".jsx":  types.LanguageJavaScript,
	".mjs":  types.LanguageJavaScript,
	".cjs":  types.LanguageJavaScript,
	".go":   types.LanguageGo,
	".java": types.LanguageJava,
	".cs":   types.LanguageCSharp,
}

// LanguageForPath returns the source language implied by a file extension.
func LanguageForPath(path string) (types.Language, bool) {
	lang, ok := languageMap[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}
