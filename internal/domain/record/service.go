package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/labels"
	"github.com/rpggio/labelstream/internal/repository"
	"go.uber.org/zap"
)

// Service handles record business logic.
type Service struct {
	records  Repository
	projects ProjectReader
	progress ProgressTracker
	logger   *zap.Logger
}

// NewService creates a new record service.
func NewService(records Repository, projects ProjectReader, progress ProgressTracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records:  records,
		projects: projects,
		progress: progress,
		logger:   logger,
	}
}

// Import replaces the project's records with one unverified record per text.
func (s *Service) Import(ctx context.Context, projectName string, texts []string) (int, error) {
	if _, err := s.project(ctx, projectName); err != nil {
		return 0, err
	}

	recs := make([]Record, len(texts))
	for i, text := range texts {
		recs[i] = Record{Position: i, Text: text}
	}

	s.progress.Begin(projectName)
	defer s.progress.End(projectName, 0)
	if err := s.records.Replace(ctx, projectName, recs); err != nil {
		return 0, fmt.Errorf("importing records: %w", err)
	}
	s.progress.Reset(projectName, 0, len(recs))

	s.logger.Info("records imported", zap.String("project", projectName), zap.Int("count", len(recs)))
	return len(recs), nil
}

// Count returns the number of records in the project, 0 if none were imported.
func (s *Service) Count(ctx context.Context, projectName string) (int, error) {
	if _, err := s.project(ctx, projectName); err != nil {
		return 0, err
	}
	return s.count(ctx, projectName)
}

func (s *Service) count(ctx context.Context, projectName string) (int, error) {
	n, err := s.records.Count(ctx, projectName)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// GetPage returns the record at index, clamped into [0, count-1].
func (s *Service) GetPage(ctx context.Context, projectName string, index int) (*Record, error) {
	if _, err := s.project(ctx, projectName); err != nil {
		return nil, err
	}

	rec, err := s.records.Page(ctx, projectName, index)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: project %s has no records", ErrIndexOutOfRange, projectName)
		}
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return rec, nil
}

// SetLabels replaces the label set of one record. The caller supplies the
// verification time; it is ignored when labels is empty.
func (s *Service) SetLabels(ctx context.Context, projectName string, index int, lbls []string, verifiedAt time.Time) (*Record, error) {
	proj, err := s.project(ctx, projectName)
	if err != nil {
		return nil, err
	}

	n, err := s.count(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if n == 0 || index < 0 || index >= n {
		return nil, fmt.Errorf("%w: index %d of %d records", ErrIndexOutOfRange, index, n)
	}

	lbls = labels.Dedupe(lbls)
	for _, l := range lbls {
		if !proj.HasLabel(l) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, l)
		}
	}

	rec, err := s.records.Get(ctx, projectName, index)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: index %d", ErrIndexOutOfRange, index)
		}
		return nil, fmt.Errorf("getting record: %w", err)
	}

	delta := rec.ApplyLabels(lbls, verifiedAt)
	s.progress.Begin(projectName)
	if err := s.records.Update(ctx, projectName, rec); err != nil {
		s.progress.End(projectName, 0)
		return nil, fmt.Errorf("updating record: %w", err)
	}
	s.progress.End(projectName, delta)

	return rec, nil
}

// StripLabel removes label from every record in the project and recomputes
// the verified counter. It returns the number of records changed.
func (s *Service) StripLabel(ctx context.Context, projectName, label string) (int, error) {
	recs, err := s.records.List(ctx, projectName)
	if err != nil {
		return 0, fmt.Errorf("listing records: %w", err)
	}

	affected, verified := 0, 0
	for i := range recs {
		rec := &recs[i]
		if !labels.Contains(rec.Labels, label) {
			continue
		}
		at := time.Now()
		if rec.VerifiedAt != nil {
			at = *rec.VerifiedAt
		}
		rec.ApplyLabels(labels.Without(rec.Labels, label), at)
		affected++
	}
	for i := range recs {
		if recs[i].Verified() {
			verified++
		}
	}

	s.progress.Begin(projectName)
	defer s.progress.End(projectName, 0)
	if affected > 0 {
		if err := s.records.Replace(ctx, projectName, recs); err != nil {
			return 0, fmt.Errorf("rewriting records: %w", err)
		}
	}
	s.progress.Reset(projectName, verified, len(recs))

	return affected, nil
}

// Export returns display rows for the project's records in positional order.
func (s *Service) Export(ctx context.Context, projectName string, filter ExportFilter) ([]ExportRow, error) {
	if _, err := s.project(ctx, projectName); err != nil {
		return nil, err
	}

	recs, err := s.records.List(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	rows := make([]ExportRow, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if filter == ExportVerified && !rec.Verified() {
			continue
		}
		rows = append(rows, ExportRow{
			Text:       rec.Text,
			VerifiedAt: FormatVerifiedAt(rec.VerifiedAt),
			Labels:     labels.Display(rec.Labels),
		})
	}
	return rows, nil
}

// Progress reports verified and total record counts for the project.
func (s *Service) Progress(ctx context.Context, projectName string) (Progress, error) {
	if _, err := s.project(ctx, projectName); err != nil {
		return Progress{}, err
	}

	p, err := s.progress.Progress(ctx, projectName)
	if err != nil {
		return Progress{}, fmt.Errorf("reading progress: %w", err)
	}
	return p, nil
}

func (s *Service) project(ctx context.Context, name string) (*project.Project, error) {
	proj, err := s.projects.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, project.ErrProjectNotFound) {
			return nil, fmt.Errorf("%w: %s", project.ErrProjectNotFound, name)
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return proj, nil
}

// Clamp moves index into [0, n-1]. n must be positive.
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n-1 {
		return n - 1
	}
	return index
}
