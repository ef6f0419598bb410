package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// fieldSep separates fields in the log format; it cannot appear in names.
const fieldSep = "\x1f"

// Git implements History using the git CLI.
type Git struct {
	// gitPath is the path to the git executable
	gitPath string
}

// NewGit creates a new Git instance.
// It verifies that git is available on the system.
func NewGit(ctx context.Context) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	// Verify git works
	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Git{gitPath: gitPath}, nil
}

// IsRepo reports whether repoPath is inside a git work tree.
// SECURITY: repoPath must be a validated, trusted path. This function
// does not perform path validation or sandboxing.
func (g *Git) IsRepo(ctx context.Context, repoPath string) bool {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rev-parse", "--is-inside-work-tree")
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) == "true"
}

// FileHistory returns up to limit commits touching path, newest first.
// An untracked file yields an empty slice and no error.
// SECURITY: repoPath must be a validated, trusted path. This function
// does not perform path validation or sandboxing.
func (g *Git) FileHistory(ctx context.Context, repoPath, path string, limit int) ([]Commit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", limit)
	}

	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "log",
		"-n", fmt.Sprintf("%d", limit),
		"--format=%an <%ae>"+"%x1f"+"%aI",
		"--", path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log failed for %s in %s: %w", path, repoPath, err)
	}

	return parseLog(string(output))
}

// parseLog parses "author<US>date" lines produced by FileHistory.
func parseLog(output string) ([]Commit, error) {
	var commits []Commit

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		author, date, ok := strings.Cut(line, fieldSep)
		if !ok {
			return nil, fmt.Errorf("unexpected git log line: %q", line)
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("failed to parse commit date %q: %w", date, err)
		}

		commits = append(commits, Commit{Author: strings.TrimSpace(author), Timestamp: ts})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git log: %w", err)
	}

	return commits, nil
}
