// Package annotation is the entry point to project and record state. It wraps
// the project registry and record store and makes every mutation atomic with
// respect to other callers: mutations hold the project's lock (and the index
// lock when the shared project index is rewritten) from the first read until
// the write is durable.
package annotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rpggio/labelstream/internal/domain/progress"
	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/lock"
	"github.com/rpggio/labelstream/internal/repository"
	"go.uber.org/zap"
)

// Backend is a persistence implementation for projects and records.
type Backend interface {
	Projects() project.Repository
	Records() record.Repository
	Close() error
}

// SharedBackend is a Backend whose storage other processes may open at the
// same time. LockDir names the directory for the lock files they share; an
// empty value means the storage is private to this process.
type SharedBackend interface {
	Backend
	LockDir() string
}

// Options tunes locking and retry behaviour.
type Options struct {
	// LockWait bounds how long a mutation waits for its locks.
	LockWait time.Duration
	// RetryDelay is the pause before the single retry of a failed write.
	RetryDelay time.Duration
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		LockWait:   lock.DefaultWait,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Store serialises access to projects and records.
type Store struct {
	backend  Backend
	projects *project.Service
	records  *record.Service
	tracker  *progress.Tracker
	locks    *lock.Manager
	opts     Options
	logger   *zap.Logger
}

// New wires the domain services on top of backend.
func New(backend Backend, opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}

	projectRepo := backend.Projects()
	recordRepo := backend.Records()

	var (
		lockOpts    []lock.Option
		trackerOpts []progress.Option
	)
	if shared, ok := backend.(SharedBackend); ok && shared.LockDir() != "" {
		// Writes from other processes never reach this process's counters.
		lockOpts = append(lockOpts, lock.WithFileLocks(shared.LockDir()))
		trackerOpts = append(trackerOpts, progress.WithoutCache())
	}

	tracker := progress.NewTracker(recordRepo, trackerOpts...)
	records := record.NewService(recordRepo, projectRepo, tracker, logger.Named("records"))
	projects := project.NewService(projectRepo, records, tracker, logger.Named("projects"))

	return &Store{
		backend:  backend,
		projects: projects,
		records:  records,
		tracker:  tracker,
		locks:    lock.NewManager(opts.LockWait, lockOpts...),
		opts:     opts,
		logger:   logger,
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// ListProjects returns project names in creation order.
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	return s.projects.List(ctx)
}

// GetProject returns a project's metadata and vocabulary.
func (s *Store) GetProject(ctx context.Context, name string) (*project.Project, error) {
	return s.projects.Get(ctx, name)
}

// CreateProject registers a new, empty project.
func (s *Store) CreateProject(ctx context.Context, name string) (*project.Project, error) {
	var proj *project.Project
	err := s.mutate(ctx, "create_project", name, true, func(ctx context.Context) error {
		var err error
		proj, err = s.projects.Create(ctx, name)
		return err
	})
	return proj, err
}

// DeleteProject removes a project and all of its records.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	return s.mutate(ctx, "delete_project", name, true, func(ctx context.Context) error {
		return s.projects.Delete(ctx, name)
	})
}

// SetDescription replaces a project's description.
func (s *Store) SetDescription(ctx context.Context, name, text string) (*project.Project, error) {
	var proj *project.Project
	err := s.mutate(ctx, "set_description", name, true, func(ctx context.Context) error {
		var err error
		proj, err = s.projects.SetDescription(ctx, name, text)
		return err
	})
	return proj, err
}

// AddLabel adds label to a project's vocabulary.
func (s *Store) AddLabel(ctx context.Context, name, label string) (*project.Project, error) {
	var proj *project.Project
	err := s.mutate(ctx, "add_label", name, true, func(ctx context.Context) error {
		var err error
		proj, err = s.projects.AddLabel(ctx, name, label)
		return err
	})
	return proj, err
}

// RemoveLabel removes label from the vocabulary and from every record.
func (s *Store) RemoveLabel(ctx context.Context, name, label string) (*project.Project, error) {
	var proj *project.Project
	err := s.mutate(ctx, "remove_label", name, true, func(ctx context.Context) error {
		var err error
		proj, err = s.projects.RemoveLabel(ctx, name, label)
		return err
	})
	return proj, err
}

// ImportRecords replaces a project's records with one unverified record per
// text.
func (s *Store) ImportRecords(ctx context.Context, name string, texts []string) (int, error) {
	var n int
	err := s.mutate(ctx, "import_records", name, false, func(ctx context.Context) error {
		var err error
		n, err = s.records.Import(ctx, name, texts)
		return err
	})
	return n, err
}

// Count returns the number of records in a project.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	return s.records.Count(ctx, name)
}

// GetPage returns the record at index, clamped into range.
func (s *Store) GetPage(ctx context.Context, name string, index int) (*record.Record, error) {
	return s.records.GetPage(ctx, name, index)
}

// SetLabels replaces the labels of the record at index. verifiedAt is
// recorded when labels is non-empty.
func (s *Store) SetLabels(ctx context.Context, name string, index int, labels []string, verifiedAt time.Time) (*record.Record, error) {
	var rec *record.Record
	err := s.mutate(ctx, "set_labels", name, false, func(ctx context.Context) error {
		var err error
		rec, err = s.records.SetLabels(ctx, name, index, labels, verifiedAt)
		return err
	})
	return rec, err
}

// ExportRows returns display rows for a project's records.
func (s *Store) ExportRows(ctx context.Context, name string, filter record.ExportFilter) ([]record.ExportRow, error) {
	return s.records.Export(ctx, name, filter)
}

// Progress reports how many of a project's records are verified.
func (s *Store) Progress(ctx context.Context, name string) (record.Progress, error) {
	return s.records.Progress(ctx, name)
}

// ProgressCheck compares the cached verified counter with a full scan.
type ProgressCheck struct {
	Stored     int  `json:"stored"`
	Recomputed int  `json:"recomputed"`
	Repaired   bool `json:"repaired"`
}

// VerifyProgress recomputes a project's verified counter and repairs the
// cached value if it drifted.
func (s *Store) VerifyProgress(ctx context.Context, name string) (ProgressCheck, error) {
	var check ProgressCheck
	err := s.mutate(ctx, "verify_progress", name, false, func(ctx context.Context) error {
		if _, err := s.projects.Get(ctx, name); err != nil {
			return err
		}
		stored, err := s.tracker.Stored(ctx, name)
		if err != nil {
			return fmt.Errorf("reading progress: %w", err)
		}
		recomputed, err := s.tracker.Recompute(ctx, name)
		if err != nil {
			return fmt.Errorf("recomputing progress: %w", err)
		}
		check = ProgressCheck{Stored: stored, Recomputed: recomputed, Repaired: stored != recomputed}
		if check.Repaired {
			s.logger.Warn("progress counter drifted",
				zap.String("project", name),
				zap.Int("stored", stored),
				zap.Int("recomputed", recomputed),
			)
		}
		return nil
	})
	return check, err
}

// mutate runs fn under the project lock, and first the index lock when
// index is set. A storage failure is retried once while the locks are held.
func (s *Store) mutate(ctx context.Context, op, name string, index bool, fn func(context.Context) error) error {
	logger := s.logger.With(
		zap.String("op", op),
		zap.String("op_id", uuid.NewString()),
		zap.String("project", name),
	)

	if index {
		release, err := s.locks.Index(ctx)
		if err != nil {
			logger.Warn("index lock not acquired", zap.Error(err))
			return err
		}
		defer release()
	}
	release, err := s.locks.Project(ctx, name)
	if err != nil {
		logger.Warn("project lock not acquired", zap.Error(err))
		return err
	}
	defer release()

	start := time.Now()
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), 1), ctx)
	err = backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		logger.Warn("storage failure", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, policy)

	if err != nil {
		logger.Debug("mutation failed", zap.Int("attempts", attempt), zap.Error(err))
		return err
	}
	logger.Debug("mutation committed", zap.Int("attempts", attempt), zap.Duration("duration", time.Since(start)))
	return nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, repository.ErrStorage)
}
