package project

import "context"

// Repository provides persistence for projects and their record namespace.
type Repository interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*Project, error)
	// Create registers the project and allocates its record namespace.
	Create(ctx context.Context, proj *Project) error
	Update(ctx context.Context, proj *Project) error
	// Delete removes the project and every record in its namespace.
	Delete(ctx context.Context, name string) error
}

// LabelStripper removes a label from every record of a project.
type LabelStripper interface {
	StripLabel(ctx context.Context, projectName, label string) (int, error)
}

// ProgressCache drops cached progress for deleted projects. Begin and End
// bracket the delete so no concurrent scan caches the old records.
type ProgressCache interface {
	Begin(projectName string)
	End(projectName string, delta int)
	Forget(projectName string)
}
