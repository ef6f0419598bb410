package discovery

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFiles are read from the scan root, in order, when present.
var IgnoreFiles = []string{".gitignore", ".agentscanignore"}

type ignoreSet []*ignore.GitIgnore

func loadIgnoreFiles(root string) ignoreSet {
	var set ignoreSet
	for _, name := range IgnoreFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		gi, err := ignore.CompileIgnoreFile(path)
		if err != nil {
			log.Debug().Err(err).Str("file", path).Msg("ignore file unreadable, skipping")
			continue
		}
		set = append(set, gi)
	}
	return set
}

// matches reports whether any ignore file excludes rel. Directories are also
// tested with a trailing slash so that "dir/" rules prune them.
func (s ignoreSet) matches(rel string, isDir bool) bool {
	for _, gi := range s {
		if gi.MatchesPath(rel) {
			return true
		}
		if isDir && gi.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}
