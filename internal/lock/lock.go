// Package lock provides the exclusive locks that serialise mutations: one
// per project name plus one for the shared project index.
//
// Locks are always held in-process. With WithFileLocks they are also backed
// by advisory OS file locks, so separate processes opening the same storage
// exclude each other too.
//
// Waits are bounded. A caller that cannot acquire a lock within the wait
// timeout gets ErrBusy; a caller whose own context ends first gets the
// context error.
package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when a lock could not be acquired within the wait
// timeout.
var ErrBusy = errors.New("busy: lock wait timed out")

// DefaultWait is used when a Manager is created with a non-positive wait.
const DefaultWait = 5 * time.Second

// retryDelay is how often a contended file lock is retried.
const retryDelay = 10 * time.Millisecond

const indexLockFile = "index.lock"

// Release gives a lock back. It is safe to call more than once.
type Release func()

// Option configures a Manager.
type Option func(*Manager)

// WithFileLocks backs every lock with a file in dir. The directory is
// created on first use.
func WithFileLocks(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// Manager hands out project and index locks.
type Manager struct {
	wait  time.Duration
	dir   string
	index *semaphore.Weighted

	mu       sync.Mutex
	projects map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewManager creates a Manager whose acquisitions wait at most wait.
func NewManager(wait time.Duration, opts ...Option) *Manager {
	if wait <= 0 {
		wait = DefaultWait
	}
	m := &Manager{
		wait:     wait,
		index:    semaphore.NewWeighted(1),
		projects: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Index acquires the project index lock.
func (m *Manager) Index(ctx context.Context) (Release, error) {
	unlock, err := m.acquire(ctx, m.index, indexLockFile)
	if err != nil {
		return nil, fmt.Errorf("project index: %w", err)
	}
	return once(func() {
		unlock()
		m.index.Release(1)
	}), nil
}

// Project acquires the lock scoped to a project name.
func (m *Manager) Project(ctx context.Context, name string) (Release, error) {
	e := m.ref(name)
	unlock, err := m.acquire(ctx, e.sem, projectLockFile(name))
	if err != nil {
		m.unref(name)
		return nil, fmt.Errorf("project %s: %w", name, err)
	}
	return once(func() {
		unlock()
		e.sem.Release(1)
		m.unref(name)
	}), nil
}

// acquire takes sem and then the file lock, both within one wait budget. The
// returned func releases the file lock only.
func (m *Manager) acquire(ctx context.Context, sem *semaphore.Weighted, file string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.wait)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		return nil, waitErr(ctx)
	}
	if m.dir == "" {
		return func() {}, nil
	}

	unlock, err := m.lockFile(waitCtx, file)
	if err != nil {
		sem.Release(1)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, waitErr(ctx)
		}
		return nil, err
	}
	return unlock, nil
}

func (m *Manager) lockFile(ctx context.Context, file string) (func(), error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(filepath.Join(m.dir, file))
	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrBusy
	}
	return func() { _ = fl.Unlock() }, nil
}

// waitErr reports the caller's own context error in preference to ErrBusy.
func waitErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrBusy
}

// projectLockFile maps a project name to a file name that is valid whatever
// characters the name contains.
func projectLockFile(name string) string {
	sum := sha256.Sum256([]byte(name))
	return "p-" + hex.EncodeToString(sum[:16]) + ".lock"
}

func (m *Manager) ref(name string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.projects[name]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		m.projects[name] = e
	}
	e.refs++
	return e
}

func (m *Manager) unref(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.projects[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.projects, name)
	}
}

func once(fn func()) Release {
	var o sync.Once
	return func() { o.Do(fn) }
}
