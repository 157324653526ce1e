package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	dsn := dataSourceName
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if strings.HasPrefix(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it does not exist yet
func (db *DB) RunMigrations() error {
	migration := `
-- Project index, one row per project
CREATE TABLE IF NOT EXISTS projects (
    name TEXT PRIMARY KEY,
    create_date TEXT NOT NULL,
    description TEXT NOT NULL,
    labels TEXT
);

-- Records, one row per record; position is the record identity
CREATE TABLE IF NOT EXISTS records (
    project TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    verified_at TEXT NOT NULL DEFAULT '0',
    labels TEXT,
    PRIMARY KEY (project, position),
    FOREIGN KEY (project) REFERENCES projects(name) ON DELETE CASCADE
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Backend bundles the SQLite repositories behind one connection.
type Backend struct {
	path     string
	db       *DB
	projects *ProjectRepository
	records  *RecordRepository
}

// Open connects to the database at path and applies the schema.
func Open(path string) (*Backend, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return &Backend{
		path:     path,
		db:       db,
		projects: NewProjectRepository(db),
		records:  NewRecordRepository(db),
	}, nil
}

func (b *Backend) Projects() project.Repository { return b.projects }

func (b *Backend) Records() record.Repository { return b.records }

func (b *Backend) Close() error { return b.db.Close() }

// LockDir is where callers place lock files shared by every process that
// opens the same database file. It is empty for in-memory databases.
func (b *Backend) LockDir() string {
	if b.path == "" || strings.HasPrefix(b.path, ":memory:") || strings.Contains(b.path, "mode=memory") {
		return ""
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(b.path, "file:"), "?")
	return path + ".locks"
}

// nullableLabels stores an empty label set as NULL.
func nullableLabels(enc string) sql.NullString {
	return sql.NullString{String: enc, Valid: enc != ""}
}
