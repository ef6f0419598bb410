package git

import (
	"context"
	"time"
)

// History defines the revision-history queries used for ownership
// attribution.
//
// This interface is designed to be implementation-agnostic,
// allowing for mocking in tests and alternative VCS backends.
type History interface {
	// IsRepo reports whether repoPath is inside a work tree.
	IsRepo(ctx context.Context, repoPath string) bool

	// FileHistory returns up to limit commits touching path, newest first.
	// path is relative to repoPath.
	FileHistory(ctx context.Context, repoPath, path string, limit int) ([]Commit, error)
}

// Commit is one revision entry touching a file.
type Commit struct {
	Author    string    // "Name <email>"
	Timestamp time.Time // author date
}
