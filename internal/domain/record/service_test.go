package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/labelstream/internal/domain/project"
	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/rpggio/labelstream/internal/repository"
	"github.com/rpggio/labelstream/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t1 = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func demoProject(lbls ...string) *project.Project {
	return &project.Project{Name: "demo", Description: project.DefaultDescription, Labels: lbls}
}

func TestRecordService_ImportReplacesAndResetsProgress(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	tracker := &mocks.ProgressTracker{}

	projects.On("Get", ctx, "demo").Return(demoProject(), nil)
	records.On("Replace", ctx, "demo", []record.Record{
		{Position: 0, Text: "a"},
		{Position: 1, Text: "b"},
		{Position: 2, Text: "c"},
	}).Return(nil)
	tracker.On("Begin", "demo").Return().Once()
	tracker.On("Reset", "demo", 0, 3).Return().Once()
	tracker.On("End", "demo", 0).Return().Once()

	svc := record.NewService(records, projects, tracker, nil)
	n, err := svc.Import(ctx, "demo", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	tracker.AssertExpectations(t)
}

func TestRecordService_ImportUnknownProject(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "nope").Return(nil, repository.ErrNotFound)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.Import(ctx, "nope", []string{"a"})
	require.ErrorIs(t, err, project.ErrProjectNotFound)
	records.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordService_GetPageClamps(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "demo").Return(demoProject(), nil)
	records.On("Page", ctx, "demo", 99).Return(&record.Record{Position: 2, Text: "c"}, nil)
	records.On("Page", ctx, "demo", -5).Return(&record.Record{Position: 0, Text: "a"}, nil)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)

	rec, err := svc.GetPage(ctx, "demo", 99)
	require.NoError(t, err)
	require.Equal(t, 2, rec.Position)

	rec, err = svc.GetPage(ctx, "demo", -5)
	require.NoError(t, err)
	require.Equal(t, 0, rec.Position)
	records.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0, record.Clamp(-1, 3))
	require.Equal(t, 1, record.Clamp(1, 3))
	require.Equal(t, 2, record.Clamp(7, 3))
	require.Equal(t, 0, record.Clamp(5, 1))
}

func TestRecordService_GetPageEmpty(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "demo").Return(demoProject(), nil)
	records.On("Page", ctx, "demo", 0).Return(nil, repository.ErrNotFound)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.GetPage(ctx, "demo", 0)
	require.ErrorIs(t, err, record.ErrIndexOutOfRange)
}

func TestRecordService_GetPageUnknownProject(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "nope").Return(nil, repository.ErrNotFound)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.GetPage(ctx, "nope", 0)
	require.ErrorIs(t, err, project.ErrProjectNotFound)
	records.AssertNotCalled(t, "Page", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordService_SetLabelsTransitions(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	tracker := &mocks.ProgressTracker{}

	stored := &record.Record{Position: 1, Text: "b"}
	projects.On("Get", ctx, "demo").Return(demoProject("pos", "neg"), nil)
	records.On("Count", ctx, "demo").Return(3, nil)
	records.On("Get", ctx, "demo", 1).Return(stored, nil)
	records.On("Update", ctx, "demo", mock.Anything).Return(nil)
	tracker.On("Begin", "demo").Return()
	tracker.On("End", "demo", mock.Anything).Return()

	svc := record.NewService(records, projects, tracker, nil)

	rec, err := svc.SetLabels(ctx, "demo", 1, []string{"pos"}, t1)
	require.NoError(t, err)
	require.Equal(t, []string{"pos"}, rec.Labels)
	require.NotNil(t, rec.VerifiedAt)
	require.True(t, t1.Equal(*rec.VerifiedAt))
	tracker.AssertCalled(t, "End", "demo", 1)

	rec, err = svc.SetLabels(ctx, "demo", 1, []string{"neg", "pos", "neg"}, t1.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"neg", "pos"}, rec.Labels)
	tracker.AssertCalled(t, "End", "demo", 0)

	rec, err = svc.SetLabels(ctx, "demo", 1, nil, t1)
	require.NoError(t, err)
	require.Empty(t, rec.Labels)
	require.Nil(t, rec.VerifiedAt)
	tracker.AssertCalled(t, "End", "demo", -1)
	tracker.AssertNumberOfCalls(t, "Begin", 3)
	tracker.AssertNumberOfCalls(t, "End", 3)
}

func TestRecordService_SetLabelsFailedWriteEndsWithoutDelta(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	tracker := &mocks.ProgressTracker{}

	projects.On("Get", ctx, "demo").Return(demoProject("pos"), nil)
	records.On("Count", ctx, "demo").Return(1, nil)
	records.On("Get", ctx, "demo", 0).Return(&record.Record{Position: 0, Text: "a"}, nil)
	records.On("Update", ctx, "demo", mock.Anything).Return(repository.ErrStorage)
	tracker.On("Begin", "demo").Return().Once()
	tracker.On("End", "demo", 0).Return().Once()

	svc := record.NewService(records, projects, tracker, nil)
	_, err := svc.SetLabels(ctx, "demo", 0, []string{"pos"}, t1)
	require.ErrorIs(t, err, repository.ErrStorage)
	tracker.AssertExpectations(t)
}

func TestRecordService_SetLabelsVanishedRecord(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}

	projects.On("Get", ctx, "demo").Return(demoProject("pos"), nil)
	records.On("Count", ctx, "demo").Return(2, nil)
	records.On("Get", ctx, "demo", 1).Return(nil, repository.ErrNotFound)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.SetLabels(ctx, "demo", 1, []string{"pos"}, t1)
	require.ErrorIs(t, err, record.ErrIndexOutOfRange)
	records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordService_SetLabelsUnknownLabel(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "demo").Return(demoProject("pos"), nil)
	records.On("Count", ctx, "demo").Return(3, nil)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.SetLabels(ctx, "demo", 0, []string{"pos", "spam"}, t1)
	require.ErrorIs(t, err, record.ErrUnknownLabel)
	records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordService_SetLabelsNoRecords(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "demo").Return(demoProject("pos"), nil)
	records.On("Count", ctx, "demo").Return(0, nil)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)
	_, err := svc.SetLabels(ctx, "demo", 0, []string{"pos"}, t1)
	require.ErrorIs(t, err, record.ErrIndexOutOfRange)
}

func TestRecordService_StripLabel(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	tracker := &mocks.ProgressTracker{}

	v := t1
	records.On("List", ctx, "demo").Return([]record.Record{
		{Position: 0, Text: "a", Labels: []string{"pos"}, VerifiedAt: &v},
		{Position: 1, Text: "b", Labels: []string{"pos", "neg"}, VerifiedAt: &v},
		{Position: 2, Text: "c"},
	}, nil)
	records.On("Replace", ctx, "demo", mock.MatchedBy(func(recs []record.Record) bool {
		return len(recs) == 3 &&
			len(recs[0].Labels) == 0 && recs[0].VerifiedAt == nil &&
			len(recs[1].Labels) == 1 && recs[1].Labels[0] == "neg" && recs[1].VerifiedAt.Equal(t1) &&
			recs[2].VerifiedAt == nil
	})).Return(nil)
	tracker.On("Begin", "demo").Return().Once()
	tracker.On("Reset", "demo", 1, 3).Return().Once()
	tracker.On("End", "demo", 0).Return().Once()

	svc := record.NewService(records, &mocks.ProjectRepository{}, tracker, nil)
	n, err := svc.StripLabel(ctx, "demo", "pos")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	records.AssertExpectations(t)
	tracker.AssertExpectations(t)
}

func TestRecordService_ExportFilters(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}

	v := t1
	projects.On("Get", ctx, "demo").Return(demoProject("pos", "neg"), nil)
	records.On("List", ctx, "demo").Return([]record.Record{
		{Position: 0, Text: "a"},
		{Position: 1, Text: "b", Labels: []string{"pos", "neg"}, VerifiedAt: &v},
	}, nil)

	svc := record.NewService(records, projects, &mocks.ProgressTracker{}, nil)

	rows, err := svc.Export(ctx, "demo", record.ExportAll)
	require.NoError(t, err)
	require.Equal(t, []record.ExportRow{
		{Text: "a", VerifiedAt: record.Unverified, Labels: ""},
		{Text: "b", VerifiedAt: "2024-05-06 07:08:09", Labels: "pos, neg"},
	}, rows)

	rows, err = svc.Export(ctx, "demo", record.ExportVerified)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "b", rows[0].Text)
}

func TestRecordService_Progress(t *testing.T) {
	ctx := context.Background()
	records := &mocks.RecordRepository{}
	projects := &mocks.ProjectRepository{}
	tracker := &mocks.ProgressTracker{}

	projects.On("Get", ctx, "demo").Return(demoProject(), nil)
	tracker.On("Progress", ctx, "demo").Return(record.NewProgress(1, 4), nil)

	svc := record.NewService(records, projects, tracker, nil)
	p, err := svc.Progress(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, record.Progress{Verified: 1, Total: 4, Percent: 25}, p)
	records.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}
