// Package ownership attributes agent records to the contributors who touch
// their files most often. A tree without revision history degrades silently:
// records are simply left without an owner.
package ownership

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/steveyegge/agentscan/internal/git"
	"github.com/steveyegge/agentscan/internal/types"
)

// HistoryLimit is the number of revision entries examined per file.
const HistoryLimit = 50

// Ownership is the attribution for one file.
type Ownership struct {
	Owner        string
	LastModified time.Time
}

// Enricher looks up and caches ownership per file path.
type Enricher struct {
	history git.History
	root    string

	once   sync.Once
	isRepo bool

	mu    sync.Mutex
	cache map[string]lookup
}

type lookup struct {
	own Ownership
	ok  bool
}

// NewEnricher creates an enricher for the tree at root. history may be nil
// when git is unavailable, in which case every lookup reports no ownership.
func NewEnricher(history git.History, root string) *Enricher {
	return &Enricher{
		history: history,
		root:    root,
		cache:   make(map[string]lookup),
	}
}

// Available reports whether root is under revision control.
func (e *Enricher) Available(ctx context.Context) bool {
	e.once.Do(func() {
		e.isRepo = e.history != nil && e.history.IsRepo(ctx, e.root)
		if !e.isRepo {
			log.Debug().Str("root", e.root).Msg("no revision history, ownership disabled")
		}
	})
	return e.isRepo
}

// Lookup returns the ownership of a root-relative path. The second result is
// false when no history is available for the path: not a repository, git
// missing, untracked file, or a failed query.
func (e *Enricher) Lookup(ctx context.Context, path string) (Ownership, bool) {
	if !e.Available(ctx) {
		return Ownership{}, false
	}

	e.mu.Lock()
	if hit, ok := e.cache[path]; ok {
		e.mu.Unlock()
		return hit.own, hit.ok
	}
	e.mu.Unlock()

	own, ok := e.query(ctx, path)

	e.mu.Lock()
	e.cache[path] = lookup{own: own, ok: ok}
	e.mu.Unlock()
	return own, ok
}

func (e *Enricher) query(ctx context.Context, path string) (Ownership, bool) {
	commits, err := e.history.FileHistory(ctx, e.root, path, HistoryLimit)
	if err != nil {
		log.Debug().Err(err).Str("file", path).Msg("history query failed")
		return Ownership{}, false
	}
	if len(commits) == 0 {
		return Ownership{}, false
	}
	return Summarize(commits), true
}

// Summarize picks the contributor with the most entries (ties go to the one
// encountered first) and the newest timestamp.
func Summarize(commits []git.Commit) Ownership {
	counts := make(map[string]int)
	var order []string
	var own Ownership

	for _, c := range commits {
		if _, seen := counts[c.Author]; !seen {
			order = append(order, c.Author)
		}
		counts[c.Author]++
		if c.Timestamp.After(own.LastModified) {
			own.LastModified = c.Timestamp
		}
	}

	best := 0
	for _, author := range order {
		if counts[author] > best {
			best = counts[author]
			own.Owner = author
		}
	}
	return own
}

// Enrich sets Owner and LastModified on every record whose file has history.
// It returns the number of records enriched.
func (e *Enricher) Enrich(ctx context.Context, records []*types.AgentRecord) int {
	enriched := 0
	for _, rec := range records {
		own, ok := e.Lookup(ctx, rec.Location.FilePath)
		if !ok {
			continue
		}
		rec.Metadata.Owner = own.Owner
		modified := own.LastModified
		rec.Metadata.LastModified = &modified
		enriched++
	}
	return enriched
}
