package taskservice

import (
	"context"
	"time"

	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Task Repo
// ------------------------

type FakeTaskRepo struct {
	trace []string
	tasks map[sharedtypes.TaskID]*taskdb.BackgroundTask

	InsertFunc func(ctx context.Context, db bun.IDB, task *taskdb.BackgroundTask) error
}

func NewFakeTaskRepo() *FakeTaskRepo {
	return &FakeTaskRepo{trace: []string{}, tasks: map[sharedtypes.TaskID]*taskdb.BackgroundTask{}}
}

func (f *FakeTaskRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeTaskRepo) Insert(ctx context.Context, db bun.IDB, task *taskdb.BackgroundTask) error {
	f.record("Insert")
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, task)
	}
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *FakeTaskRepo) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.TaskID) (*taskdb.BackgroundTask, error) {
	f.record("GetByID")
	t, ok := f.tasks[id]
	if !ok {
		return nil, taskdb.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *FakeTaskRepo) Update(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, status taskdb.Status, fields taskdb.Fields, at time.Time) error {
	f.record("Update")
	t, ok := f.tasks[id]
	if !ok {
		return taskdb.ErrNoRowsAffected
	}
	t.Status = status
	t.UpdatedAt = at
	if fields.Result != nil {
		t.Result = fields.Result
	}
	if fields.ErrorMessage != nil {
		t.ErrorMessage = fields.ErrorMessage
	}
	if fields.ProcessedCount != nil {
		t.ProcessedCount = *fields.ProcessedCount
	}
	if fields.ProgressPercent != nil {
		t.ProgressPercent = *fields.ProgressPercent
	}
	if fields.StartedAt != nil {
		t.StartedAt = fields.StartedAt
	}
	if fields.CompletedAt != nil {
		t.CompletedAt = fields.CompletedAt
	}
	return nil
}

func (f *FakeTaskRepo) MarkProcessing(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, at time.Time) error {
	f.record("MarkProcessing")
	t, ok := f.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return nil
	}
	t.Status = taskdb.StatusProcessing
	if t.StartedAt == nil {
		t.StartedAt = &at
	}
	return nil
}

func (f *FakeTaskRepo) RecordProgress(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, progress taskdb.Progress, at time.Time) (*taskdb.BackgroundTask, error) {
	f.record("RecordProgress")
	t, ok := f.tasks[id]
	if !ok {
		return nil, taskdb.ErrNotFound
	}
	if err := t.ApplyProgress(progress, at); err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

func (f *FakeTaskRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ taskdb.Repository = (*FakeTaskRepo)(nil)
