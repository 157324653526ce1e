package mocks

import (
	"context"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if names, ok := args.Get(0).([]string); ok {
		return names, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Get(ctx context.Context, name string) (*project.Project, error) {
	args := m.Called(ctx, name)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Update(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// RecordRepository is a mock for record.Repository.
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Replace(ctx context.Context, projectName string, recs []record.Record) error {
	args := m.Called(ctx, projectName, recs)
	return args.Error(0)
}

func (m *RecordRepository) Count(ctx context.Context, projectName string) (int, error) {
	args := m.Called(ctx, projectName)
	return args.Int(0), args.Error(1)
}

func (m *RecordRepository) Get(ctx context.Context, projectName string, position int) (*record.Record, error) {
	args := m.Called(ctx, projectName, position)
	if rec, ok := args.Get(0).(*record.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecordRepository) Page(ctx context.Context, projectName string, index int) (*record.Record, error) {
	args := m.Called(ctx, projectName, index)
	if rec, ok := args.Get(0).(*record.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RecordRepository) Update(ctx context.Context, projectName string, rec *record.Record) error {
	args := m.Called(ctx, projectName, rec)
	return args.Error(0)
}

func (m *RecordRepository) List(ctx context.Context, projectName string) ([]record.Record, error) {
	args := m.Called(ctx, projectName)
	if recs, ok := args.Get(0).([]record.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

// LabelStripper is a mock for project.LabelStripper.
type LabelStripper struct {
	mock.Mock
}

func (m *LabelStripper) StripLabel(ctx context.Context, projectName, label string) (int, error) {
	args := m.Called(ctx, projectName, label)
	return args.Int(0), args.Error(1)
}

// ProgressTracker is a mock for record.ProgressTracker and
// project.ProgressCache.
type ProgressTracker struct {
	mock.Mock
}

func (m *ProgressTracker) Begin(projectName string) {
	m.Called(projectName)
}

func (m *ProgressTracker) End(projectName string, delta int) {
	m.Called(projectName, delta)
}

func (m *ProgressTracker) Reset(projectName string, verified, total int) {
	m.Called(projectName, verified, total)
}

func (m *ProgressTracker) Forget(projectName string) {
	m.Called(projectName)
}

func (m *ProgressTracker) Progress(ctx context.Context, projectName string) (record.Progress, error) {
	args := m.Called(ctx, projectName)
	if p, ok := args.Get(0).(record.Progress); ok {
		return p, args.Error(1)
	}
	return record.Progress{}, args.Error(1)
}
