package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/labelstream/internal/labels"
	"github.com/rpggio/labelstream/internal/repository"
	"go.uber.org/zap"
)

// Service handles project registry operations.
type Service struct {
	repo     Repository
	records  LabelStripper
	progress ProgressCache
	logger   *zap.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, records LabelStripper, progress ProgressCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, records: records, progress: progress, logger: logger}
}

// List returns the names of all projects in creation order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Create registers a new project and provisions its record namespace.
func (s *Service) Create(ctx context.Context, name string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	proj := &Project{
		Name:        name,
		CreateDate:  time.Now().UTC().Truncate(time.Second),
		Description: DefaultDescription,
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created", zap.String("project", name))
	return proj, nil
}

// Get fetches a project by name.
func (s *Service) Get(ctx context.Context, name string) (*Project, error) {
	proj, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, s.mapErr(err, name, "getting project")
	}
	return proj, nil
}

// Delete removes a project together with all of its records.
func (s *Service) Delete(ctx context.Context, name string) error {
	if s.progress != nil {
		s.progress.Begin(name)
		defer s.progress.End(name, 0)
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return s.mapErr(err, name, "deleting project")
	}
	if s.progress != nil {
		s.progress.Forget(name)
	}

	s.logger.Info("project deleted", zap.String("project", name))
	return nil
}

// SetDescription replaces the project description.
func (s *Service) SetDescription(ctx context.Context, name, text string) (*Project, error) {
	proj, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if proj.Description == text {
		return proj, nil
	}

	proj.Description = text
	if err := s.repo.Update(ctx, proj); err != nil {
		return nil, s.mapErr(err, name, "updating description")
	}
	return proj, nil
}

// AddLabel appends label to the vocabulary. Adding a known label is a no-op.
func (s *Service) AddLabel(ctx context.Context, name, label string) (*Project, error) {
	if err := labels.Validate(label); err != nil {
		return nil, err
	}

	proj, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if proj.HasLabel(label) {
		return proj, nil
	}

	proj.Labels = append(proj.Labels, label)
	if err := s.repo.Update(ctx, proj); err != nil {
		return nil, s.mapErr(err, name, "adding label")
	}

	s.logger.Debug("label added", zap.String("project", name), zap.String("label", label))
	return proj, nil
}

// RemoveLabel drops label from the vocabulary and from every record that
// carries it. Records are rewritten before the vocabulary so a record never
// holds a label the project no longer defines.
func (s *Service) RemoveLabel(ctx context.Context, name, label string) (*Project, error) {
	proj, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !proj.HasLabel(label) {
		return nil, fmt.Errorf("%w: %q in project %s", ErrLabelNotFound, label, name)
	}

	affected, err := s.records.StripLabel(ctx, name, label)
	if err != nil {
		return nil, fmt.Errorf("stripping label from records: %w", err)
	}

	proj.Labels = labels.Without(proj.Labels, label)
	if err := s.repo.Update(ctx, proj); err != nil {
		return nil, s.mapErr(err, name, "removing label")
	}

	s.logger.Info("label removed",
		zap.String("project", name),
		zap.String("label", label),
		zap.Int("records_affected", affected),
	)
	return proj, nil
}

func (s *Service) mapErr(err error, name, action string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return fmt.Errorf("%s: %w", action, err)
}
