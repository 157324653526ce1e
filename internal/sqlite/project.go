package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/labels"
	"github.com/rpggio/labelstream/internal/repository"
)

const dateLayout = "2006-01-02 15:04:05"

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns all project names in creation order
func (r *ProjectRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, repository.Storage("list projects", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, repository.Storage("scan project name", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, repository.Storage("iterate project rows", err)
	}

	return names, nil
}

// Get retrieves a project by name
func (r *ProjectRepository) Get(ctx context.Context, name string) (*project.Project, error) {
	query := `
		SELECT name, create_date, description, labels
		FROM projects
		WHERE name = ?
	`

	var (
		proj       project.Project
		createDate string
		lbls       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&proj.Name,
		&createDate,
		&proj.Description,
		&lbls,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.Storage("get project", err)
	}

	proj.CreateDate, err = time.ParseInLocation(dateLayout, createDate, time.UTC)
	if err != nil {
		return nil, repository.Storage("parse create_date", err)
	}
	proj.Labels = labels.Decode(lbls.String)

	return &proj, nil
}

// Create inserts a new project row
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	enc, err := labels.Encode(proj.Labels)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (name, create_date, description, labels)
		VALUES (?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		proj.Name,
		proj.CreateDate.UTC().Format(dateLayout),
		proj.Description,
		nullableLabels(enc),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return repository.Storage("create project", err)
	}

	return nil
}

// Update rewrites the mutable project fields
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	enc, err := labels.Encode(proj.Labels)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET description = ?, labels = ? WHERE name = ?`,
		proj.Description,
		nullableLabels(enc),
		proj.Name,
	)
	if err != nil {
		return repository.Storage("update project", err)
	}

	return requireAffected(result)
}

// Delete removes a project and its records in one transaction
func (r *ProjectRepository) Delete(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE project = ?`, name); err != nil {
		return repository.Storage("delete records", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return repository.Storage("delete project", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return repository.Storage("commit transaction", err)
	}

	return nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return repository.Storage("get rows affected", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ project.Repository = (*ProjectRepository)(nil)
