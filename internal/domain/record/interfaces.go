package record

import (
	"context"

	"github.com/rpggio/labelstream/internal/domain/project"
)

// Repository provides persistence for a project's ordered record set.
type Repository interface {
	// Replace atomically swaps the whole record set of a project.
	Replace(ctx context.Context, projectName string, recs []Record) error
	Count(ctx context.Context, projectName string) (int, error)
	Get(ctx context.Context, projectName string, position int) (*Record, error)
	// Page returns the record at index clamped into [0, count-1] in a single
	// read. It returns repository.ErrNotFound when the project has no records.
	Page(ctx context.Context, projectName string, index int) (*Record, error)
	// Update rewrites the labels and verification marker of one record.
	Update(ctx context.Context, projectName string, rec *Record) error
	List(ctx context.Context, projectName string) ([]Record, error)
}

// ProjectReader looks up the owning project and its vocabulary.
type ProjectReader interface {
	Get(ctx context.Context, name string) (*project.Project, error)
}

// ProgressTracker maintains the verified-record counter per project. Every
// persisted write is bracketed by Begin and End.
type ProgressTracker interface {
	Begin(projectName string)
	End(projectName string, delta int)
	Reset(projectName string, verified, total int)
	Progress(ctx context.Context, projectName string) (Progress, error)
}
