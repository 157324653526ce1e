package filestore

import (
	"context"
	"os"

	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/repository"
)

// RecordRepository implements record.Repository on per-project records.csv
// files.
type RecordRepository struct {
	store *Store
}

// Replace rewrites the whole records file of a project. The project's
// namespace must already exist.
func (r *RecordRepository) Replace(ctx context.Context, projectName string, recs []record.Record) error {
	dir, err := r.store.namespaceDir(projectName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return repository.ErrNotFound
		}
		return storageErr("stat record namespace", err)
	}

	if err := r.store.writeRecords(ctx, projectName, recs); err != nil {
		return storageErr("write records", err)
	}
	return nil
}

// Count returns the number of records, 0 if none were imported.
func (r *RecordRepository) Count(ctx context.Context, projectName string) (int, error) {
	recs, err := r.List(ctx, projectName)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Get returns the record at position.
func (r *RecordRepository) Get(ctx context.Context, projectName string, position int) (*record.Record, error) {
	recs, err := r.List(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= len(recs) {
		return nil, repository.ErrNotFound
	}
	return &recs[position], nil
}

// Page returns the record at index clamped into range from one read of the
// records file.
func (r *RecordRepository) Page(ctx context.Context, projectName string, index int) (*record.Record, error) {
	recs, err := r.List(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, repository.ErrNotFound
	}
	return &recs[record.Clamp(index, len(recs))], nil
}

// Update rewrites one record's labels and verification marker.
func (r *RecordRepository) Update(ctx context.Context, projectName string, rec *record.Record) error {
	recs, err := r.List(ctx, projectName)
	if err != nil {
		return err
	}
	if rec.Position < 0 || rec.Position >= len(recs) {
		return repository.ErrNotFound
	}

	recs[rec.Position].Labels = rec.Labels
	recs[rec.Position].VerifiedAt = rec.VerifiedAt

	if err := r.store.writeRecords(ctx, projectName, recs); err != nil {
		return storageErr("write records", err)
	}
	return nil
}

// List returns every record in positional order.
func (r *RecordRepository) List(ctx context.Context, projectName string) ([]record.Record, error) {
	recs, err := r.store.readRecords(projectName)
	if err != nil {
		return nil, storageErr("read records", err)
	}
	return recs, nil
}

var _ record.Repository = (*RecordRepository)(nil)
