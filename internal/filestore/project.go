package filestore

import (
	"context"
	"os"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/repository"
)

// ProjectRepository implements project.Repository on the projects.csv index.
type ProjectRepository struct {
	store *Store
}

// List returns project names in index order.
func (r *ProjectRepository) List(ctx context.Context) ([]string, error) {
	projects, err := r.store.readIndex()
	if err != nil {
		return nil, storageErr("read project index", err)
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

// Get returns the named project.
func (r *ProjectRepository) Get(ctx context.Context, name string) (*project.Project, error) {
	projects, err := r.store.readIndex()
	if err != nil {
		return nil, storageErr("read project index", err)
	}
	if i := indexOf(projects, name); i >= 0 {
		return projects[i], nil
	}
	return nil, repository.ErrNotFound
}

// Create allocates the record namespace and then appends the project to the
// index.
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	projects, err := r.store.readIndex()
	if err != nil {
		return storageErr("read project index", err)
	}
	if indexOf(projects, proj.Name) >= 0 {
		return repository.ErrConflict
	}

	dir, err := r.store.namespaceDir(proj.Name)
	if err != nil {
		return err
	}
	if err := ensureDirDurable(dir, 0o755); err != nil {
		return storageErr("create record namespace", err)
	}
	if err := r.store.writeRecords(ctx, proj.Name, []record.Record{}); err != nil {
		return storageErr("initialise records", err)
	}

	if err := r.store.writeIndex(ctx, append(projects, proj)); err != nil {
		return storageErr("write project index", err)
	}
	return nil
}

// Update rewrites the index row of an existing project.
func (r *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	projects, err := r.store.readIndex()
	if err != nil {
		return storageErr("read project index", err)
	}
	i := indexOf(projects, proj.Name)
	if i < 0 {
		return repository.ErrNotFound
	}

	updated := *projects[i]
	updated.Description = proj.Description
	updated.Labels = proj.Labels
	projects[i] = &updated

	if err := r.store.writeIndex(ctx, projects); err != nil {
		return storageErr("write project index", err)
	}
	return nil
}

// Delete drops the project from the index and then removes its namespace.
// A crash between the two steps leaves an unreachable directory, never a
// listed project without records.
func (r *ProjectRepository) Delete(ctx context.Context, name string) error {
	projects, err := r.store.readIndex()
	if err != nil {
		return storageErr("read project index", err)
	}
	i := indexOf(projects, name)
	if i < 0 {
		return repository.ErrNotFound
	}

	dir, err := r.store.namespaceDir(name)
	if err != nil {
		return err
	}

	remaining := append(projects[:i:i], projects[i+1:]...)
	if err := r.store.writeIndex(ctx, remaining); err != nil {
		return storageErr("write project index", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return storageErr("remove record namespace", err)
	}
	return nil
}

func indexOf(projects []*project.Project, name string) int {
	for i, p := range projects {
		if p.Name == name {
			return i
		}
	}
	return -1
}

var _ project.Repository = (*ProjectRepository)(nil)
