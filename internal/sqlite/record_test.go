package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestRecordRepository_ReplaceAndList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createProject(t, NewProjectRepository(db), "demo", "pos")
	repo := NewRecordRepository(db)

	n, err := repo.Count(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, repo.Replace(ctx, "demo", []record.Record{{Text: "a"}, {Text: "b"}, {Text: "c"}}))
	require.NoError(t, repo.Replace(ctx, "demo", []record.Record{{Text: "x"}, {Text: "y"}}))

	recs, err := repo.List(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "x", recs[0].Text)
	require.Equal(t, 0, recs[0].Position)
	require.Equal(t, "y", recs[1].Text)
	require.Equal(t, 1, recs[1].Position)
	require.Nil(t, recs[1].VerifiedAt)
	require.Empty(t, recs[1].Labels)
}

func TestRecordRepository_UpdateRoundTrip(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createProject(t, NewProjectRepository(db), "demo", "pos", "neg")
	repo := NewRecordRepository(db)
	require.NoError(t, repo.Replace(ctx, "demo", []record.Record{{Text: "a"}, {Text: "b"}}))

	rec, err := repo.Get(ctx, "demo", 1)
	require.NoError(t, err)
	rec.ApplyLabels([]string{"neg", "pos"}, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Update(ctx, "demo", rec))

	loaded, err := repo.Get(ctx, "demo", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"neg", "pos"}, loaded.Labels)
	require.Equal(t, "2024-01-01 10:00:00", record.FormatVerifiedAt(loaded.VerifiedAt))

	var verifiedAt string
	err = db.QueryRow(`SELECT verified_at FROM records WHERE project = ? AND position = 0`, "demo").Scan(&verifiedAt)
	require.NoError(t, err)
	require.Equal(t, record.Unverified, verifiedAt)
}

func TestRecordRepository_NotFound(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createProject(t, NewProjectRepository(db), "demo")
	repo := NewRecordRepository(db)

	_, err := repo.Get(ctx, "demo", 0)
	require.Equal(t, repository.ErrNotFound, err)

	err = repo.Update(ctx, "demo", &record.Record{Position: 4})
	require.Equal(t, repository.ErrNotFound, err)
}

func TestRecordRepository_ReplaceRequiresProject(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRecordRepository(db)

	err := repo.Replace(context.Background(), "ghost", []record.Record{{Text: "a"}})
	require.ErrorIs(t, err, repository.ErrStorage)
}

func TestRecordRepository_PageClamps(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	createProject(t, NewProjectRepository(db), "demo")
	createProject(t, NewProjectRepository(db), "other")
	repo := NewRecordRepository(db)

	_, err := repo.Page(ctx, "demo", 0)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Replace(ctx, "demo", []record.Record{{Text: "a"}, {Text: "b"}, {Text: "c"}}))
	require.NoError(t, repo.Replace(ctx, "other", []record.Record{{Text: "x"}, {Text: "y"}, {Text: "z"}, {Text: "w"}}))

	for index, want := range map[int]string{-4: "a", 0: "a", 1: "b", 2: "c", 3: "c", 99: "c"} {
		rec, err := repo.Page(ctx, "demo", index)
		require.NoError(t, err)
		require.Equal(t, want, rec.Text, "index %d", index)
	}
}
