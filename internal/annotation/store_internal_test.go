package annotation

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/labelstream/internal/lock"
	"github.com/rpggio/labelstream/internal/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newInternalStore(t *testing.T, logger *zap.Logger) *Store {
	t.Helper()
	backend, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	s := New(backend, Options{LockWait: 20 * time.Millisecond, RetryDelay: time.Millisecond}, logger)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_BusyWhenProjectLocked(t *testing.T) {
	ctx := context.Background()
	s := newInternalStore(t, nil)
	_, err := s.CreateProject(ctx, "demo")
	require.NoError(t, err)

	release, err := s.locks.Project(ctx, "demo")
	require.NoError(t, err)

	_, err = s.ImportRecords(ctx, "demo", []string{"a"})
	require.ErrorIs(t, err, lock.ErrBusy)

	// Other projects are unaffected.
	_, err = s.CreateProject(ctx, "other")
	require.NoError(t, err)

	release()
	n, err := s.ImportRecords(ctx, "demo", []string{"a"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_BusyWhenIndexLocked(t *testing.T) {
	ctx := context.Background()
	s := newInternalStore(t, nil)

	release, err := s.locks.Index(ctx)
	require.NoError(t, err)
	defer release()

	_, err = s.CreateProject(ctx, "demo")
	require.ErrorIs(t, err, lock.ErrBusy)

	names, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestStore_LogsMutationsWithOperationID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := newInternalStore(t, zap.New(core))

	_, err := s.CreateProject(context.Background(), "demo")
	require.NoError(t, err)

	committed := logs.FilterMessage("mutation committed").All()
	require.Len(t, committed, 1)
	fields := committed[0].ContextMap()
	require.Equal(t, "create_project", fields["op"])
	require.Equal(t, "demo", fields["project"])
	require.NotEmpty(t, fields["op_id"])

	require.Equal(t, 1, logs.FilterMessage("project created").Len())
}

func TestStore_VerifyProgressRepairsDrift(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	s := newInternalStore(t, zap.New(core))

	_, err := s.CreateProject(ctx, "demo")
	require.NoError(t, err)
	_, err = s.ImportRecords(ctx, "demo", []string{"a", "b"})
	require.NoError(t, err)

	s.tracker.Reset("demo", 2, 2)

	check, err := s.VerifyProgress(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, ProgressCheck{Stored: 2, Recomputed: 0, Repaired: true}, check)
	require.Equal(t, 1, logs.FilterMessage("progress counter drifted").Len())

	p, err := s.Progress(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, 0, p.Verified)

	check, err = s.VerifyProgress(ctx, "demo")
	require.NoError(t, err)
	require.False(t, check.Repaired)
}
