package sqlite

import (
	"context"
	"database/sql"

	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/labels"
	"github.com/rpggio/labelstream/internal/repository"
)

// RecordRepository implements record.Repository for SQLite
type RecordRepository struct {
	db *DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Replace swaps the whole record set of a project in one transaction
func (r *RecordRepository) Replace(ctx context.Context, projectName string, recs []record.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE project = ?`, projectName); err != nil {
		return repository.Storage("clear records", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (project, position, text, verified_at, labels)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return repository.Storage("prepare insert", err)
	}
	defer stmt.Close()

	for i := range recs {
		rec := &recs[i]
		enc, err := labels.Encode(rec.Labels)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			projectName,
			i,
			rec.Text,
			record.FormatVerifiedAt(rec.VerifiedAt),
			nullableLabels(enc),
		)
		if err != nil {
			return repository.Storage("insert record", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return repository.Storage("commit transaction", err)
	}

	return nil
}

// Count returns the number of records in a project
func (r *RecordRepository) Count(ctx context.Context, projectName string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE project = ?`, projectName).Scan(&n)
	if err != nil {
		return 0, repository.Storage("count records", err)
	}
	return n, nil
}

// Get retrieves the record at position
func (r *RecordRepository) Get(ctx context.Context, projectName string, position int) (*record.Record, error) {
	query := `
		SELECT position, text, verified_at, labels
		FROM records
		WHERE project = ? AND position = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, projectName, position))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Storage("get record", err)
	}

	return rec, nil
}

// Page retrieves the record at index clamped into range, counting and
// reading in one statement
func (r *RecordRepository) Page(ctx context.Context, projectName string, index int) (*record.Record, error) {
	query := `
		SELECT position, text, verified_at, labels
		FROM records
		WHERE project = ? AND position = MAX(0, MIN(?,
			(SELECT COUNT(*) FROM records WHERE project = ?) - 1))
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, projectName, index, projectName))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Storage("page record", err)
	}

	return rec, nil
}

// Update rewrites the labels and verification marker of a record
func (r *RecordRepository) Update(ctx context.Context, projectName string, rec *record.Record) error {
	enc, err := labels.Encode(rec.Labels)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET verified_at = ?, labels = ?
		WHERE project = ? AND position = ?
	`,
		record.FormatVerifiedAt(rec.VerifiedAt),
		nullableLabels(enc),
		projectName,
		rec.Position,
	)
	if err != nil {
		return repository.Storage("update record", err)
	}

	return requireAffected(result)
}

// List returns every record of a project in positional order
func (r *RecordRepository) List(ctx context.Context, projectName string) ([]record.Record, error) {
	query := `
		SELECT position, text, verified_at, labels
		FROM records
		WHERE project = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, projectName)
	if err != nil {
		return nil, repository.Storage("list records", err)
	}
	defer rows.Close()

	var recs []record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, repository.Storage("scan record", err)
		}
		recs = append(recs, *rec)
	}

	if err = rows.Err(); err != nil {
		return nil, repository.Storage("iterate record rows", err)
	}

	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var (
		rec        record.Record
		verifiedAt string
		lbls       sql.NullString
	)
	if err := row.Scan(&rec.Position, &rec.Text, &verifiedAt, &lbls); err != nil {
		return nil, err
	}

	ts, err := record.ParseVerifiedAt(verifiedAt)
	if err != nil {
		return nil, err
	}
	rec.VerifiedAt = ts
	rec.Labels = labels.Decode(lbls.String)

	return &rec, nil
}

var _ record.Repository = (*RecordRepository)(nil)
