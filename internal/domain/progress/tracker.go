// Package progress keeps the per-project count of verified records.
//
// The cached counter is only an optimisation: Recompute scans the records and
// is always authoritative. Writers bracket every persisted change with Begin
// and End; a scan only refreshes the cache when no write was in flight or
// completed while it ran.
package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpggio/labelstream/internal/domain/record"
)

// Scanner lists every record of a project.
type Scanner interface {
	List(ctx context.Context, projectName string) ([]record.Record, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithoutCache makes every read scan the records. Use it when other
// processes write to the same storage, since their changes never reach this
// process's counters.
func WithoutCache() Option {
	return func(t *Tracker) { t.cache = false }
}

type counts struct {
	verified int
	total    int
}

// Tracker caches verified and total record counts per project.
type Tracker struct {
	scanner Scanner
	cache   bool

	mu      sync.Mutex
	counts  map[string]counts
	gens    map[string]uint64
	pending map[string]int
}

// NewTracker creates a tracker backed by scanner.
func NewTracker(scanner Scanner, opts ...Option) *Tracker {
	t := &Tracker{
		scanner: scanner,
		cache:   true,
		counts:  make(map[string]counts),
		gens:    make(map[string]uint64),
		pending: make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Recompute counts verified records from scratch and refreshes the cache.
func (t *Tracker) Recompute(ctx context.Context, projectName string) (int, error) {
	c, err := t.scan(ctx, projectName)
	if err != nil {
		return 0, err
	}
	return c.verified, nil
}

// Stored returns the cached verified count, recomputing it on a miss.
func (t *Tracker) Stored(ctx context.Context, projectName string) (int, error) {
	c, err := t.load(ctx, projectName)
	if err != nil {
		return 0, err
	}
	return c.verified, nil
}

// Progress returns verified and total counts taken from the same state.
func (t *Tracker) Progress(ctx context.Context, projectName string) (record.Progress, error) {
	c, err := t.load(ctx, projectName)
	if err != nil {
		return record.Progress{}, err
	}
	return record.NewProgress(c.verified, c.total), nil
}

// Begin marks a write to the project as in flight. Every Begin must be
// matched by exactly one End, whether or not the write succeeded.
func (t *Tracker) Begin(projectName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[projectName]++
	t.gens[projectName]++
}

// End closes a write opened by Begin and applies its change to the verified
// count. A failed write ends with delta 0.
func (t *Tracker) End(projectName string, delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[projectName] <= 1 {
		delete(t.pending, projectName)
	} else {
		t.pending[projectName]--
	}
	t.adjustLocked(projectName, delta)
}

// Reset sets both counters, used after the writer has the full record set
// in hand (import, label removal).
func (t *Tracker) Reset(projectName string, verified, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[projectName]++
	if t.cache {
		t.counts[projectName] = counts{verified: verified, total: total}
	}
}

// Forget drops the cached counters of a deleted project.
func (t *Tracker) Forget(projectName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[projectName]++
	delete(t.counts, projectName)
}

// adjustLocked drops delta when nothing is cached: the next read scans and
// already sees the change.
func (t *Tracker) adjustLocked(projectName string, delta int) {
	t.gens[projectName]++
	if delta == 0 {
		return
	}
	if c, ok := t.counts[projectName]; ok {
		c.verified += delta
		t.counts[projectName] = c
	}
}

func (t *Tracker) load(ctx context.Context, projectName string) (counts, error) {
	t.mu.Lock()
	c, ok := t.counts[projectName]
	t.mu.Unlock()
	if ok {
		return c, nil
	}
	return t.scan(ctx, projectName)
}

func (t *Tracker) scan(ctx context.Context, projectName string) (counts, error) {
	t.mu.Lock()
	gen := t.gens[projectName]
	t.mu.Unlock()

	recs, err := t.scanner.List(ctx, projectName)
	if err != nil {
		return counts{}, fmt.Errorf("scanning records: %w", err)
	}

	c := counts{total: len(recs)}
	for i := range recs {
		if recs[i].Verified() {
			c.verified++
		}
	}

	t.mu.Lock()
	if t.cache && t.pending[projectName] == 0 && t.gens[projectName] == gen {
		t.counts[projectName] = c
	}
	t.mu.Unlock()
	return c, nil
}
