// Package filestore persists projects as CSV files under a base directory:
//
//	<dir>/projects.csv                      index, one row per project
//	<dir>/projects/<project>/records.csv    records in positional order
//	<dir>/.locks/                           lock files for cross-process callers
//
// Namespaces live in their own directory so no project name can collide with
// the index or the lock directory. Every write replaces a whole file
// atomically. The store performs no locking of its own; concurrent writers
// must be serialised by the caller.
package filestore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/labels"
	"github.com/rpggio/labelstream/internal/repository"
)

const (
	indexFile     = "projects.csv"
	namespacesDir = "projects"
	locksDir      = ".locks"
	recordsFile   = "records.csv"
	dateLayout    = "2006-01-02 15:04:05"
)

var (
	indexHeader   = []string{"project", "createDate", "description", "label"}
	recordsHeader = []string{"text", "verifiedAt", "label"}
)

// Store is a flat-file backend.
type Store struct {
	dir string
}

// Open prepares dir for use as a store.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store dir is required")
	}
	if err := ensureDirDurable(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if err := ensureDirDurable(filepath.Join(dir, namespacesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create namespace dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Projects() project.Repository { return &ProjectRepository{store: s} }

func (s *Store) Records() record.Repository { return &RecordRepository{store: s} }

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

// LockDir is where callers place lock files shared by every process that
// opens the same dir.
func (s *Store) LockDir() string {
	return filepath.Join(s.dir, locksDir)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFile)
}

func (s *Store) namespaceDir(name string) (string, error) {
	if err := project.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, namespacesDir, name), nil
}

func (s *Store) recordsPath(name string) (string, error) {
	dir, err := s.namespaceDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, recordsFile), nil
}

// readRows parses a CSV file and drops its header. A missing file has no rows.
func readRows(path string, header []string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(header)
	first, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if strings.Join(first, ",") != strings.Join(header, ",") {
		return nil, fmt.Errorf("unexpected header in %s: %v", path, first)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func writeRows(ctx context.Context, path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	// Last point at which an abandoned call leaves the old file in place.
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

func (s *Store) readIndex() ([]*project.Project, error) {
	rows, err := readRows(s.indexPath(), indexHeader)
	if err != nil {
		return nil, err
	}

	projects := make([]*project.Project, 0, len(rows))
	for _, row := range rows {
		created, err := time.ParseInLocation(dateLayout, row[1], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse createDate of %s: %w", row[0], err)
		}
		projects = append(projects, &project.Project{
			Name:        row[0],
			CreateDate:  created,
			Description: row[2],
			Labels:      labels.Decode(row[3]),
		})
	}
	return projects, nil
}

func (s *Store) writeIndex(ctx context.Context, projects []*project.Project) error {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		enc, err := labels.Encode(p.Labels)
		if err != nil {
			return err
		}
		rows = append(rows, []string{p.Name, p.CreateDate.UTC().Format(dateLayout), p.Description, enc})
	}
	return writeRows(ctx, s.indexPath(), indexHeader, rows)
}

func (s *Store) readRecords(name string) ([]record.Record, error) {
	path, err := s.recordsPath(name)
	if err != nil {
		return nil, err
	}
	rows, err := readRows(path, recordsHeader)
	if err != nil {
		return nil, err
	}

	recs := make([]record.Record, 0, len(rows))
	for i, row := range rows {
		ts, err := record.ParseVerifiedAt(row[1])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		recs = append(recs, record.Record{
			Position:   i,
			Text:       row[0],
			VerifiedAt: ts,
			Labels:     labels.Decode(row[2]),
		})
	}
	return recs, nil
}

func (s *Store) writeRecords(ctx context.Context, name string, recs []record.Record) error {
	path, err := s.recordsPath(name)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(recs))
	for i := range recs {
		enc, err := labels.Encode(recs[i].Labels)
		if err != nil {
			return err
		}
		rows = append(rows, []string{recs[i].Text, record.FormatVerifiedAt(recs[i].VerifiedAt), enc})
	}
	return writeRows(ctx, path, recordsHeader, rows)
}

// storageErr keeps caller errors (invalid names, invalid labels) unwrapped.
func storageErr(op string, err error) error {
	if errors.Is(err, project.ErrInvalidName) || errors.Is(err, labels.ErrInvalidLabel) {
		return err
	}
	return repository.Storage(op, err)
}
