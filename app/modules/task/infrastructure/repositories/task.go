package taskdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new task repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, task *BackgroundTask) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(task).Exec(ctx); err != nil {
		return fmt.Errorf("taskdb.Insert: %w", err)
	}
	return nil
}

func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.TaskID) (*BackgroundTask, error) {
	db = r.resolveDB(db)
	task := new(BackgroundTask)
	err := db.NewSelect().
		Model(task).
		Where("bt.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("taskdb.GetByID: %w", err)
	}
	return task, nil
}

func (r *Impl) Update(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, status Status, fields Fields, at time.Time) error {
	db = r.resolveDB(db)
	q := db.NewUpdate().
		Model((*BackgroundTask)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", at.UTC())
	if fields.Result != nil {
		q = q.Set("result = ?", string(fields.Result))
	}
	if fields.ErrorMessage != nil {
		q = q.Set("error_message = ?", *fields.ErrorMessage)
	}
	if fields.ProcessedCount != nil {
		q = q.Set("processed_count = ?", *fields.ProcessedCount)
	}
	if fields.ProgressPercent != nil {
		q = q.Set("progress_percent = ?", *fields.ProgressPercent)
	}
	if fields.StartedAt != nil {
		q = q.Set("started_at = ?", fields.StartedAt.UTC())
	}
	if fields.CompletedAt != nil {
		q = q.Set("completed_at = ?", fields.CompletedAt.UTC())
	}

	res, err := q.Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("taskdb.Update: %w", err)
	}
	return requireRows(res, "taskdb.Update")
}

func (r *Impl) MarkProcessing(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, at time.Time) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*BackgroundTask)(nil)).
		Set("status = ?", StatusProcessing).
		Set("started_at = COALESCE(started_at, ?)", at.UTC()).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]Status{StatusQueued, StatusProcessing})).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("taskdb.MarkProcessing: %w", err)
	}
	return nil
}

func (r *Impl) RecordProgress(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, progress Progress, at time.Time) (*BackgroundTask, error) {
	db = r.resolveDB(db)

	var task *BackgroundTask
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		locked := new(BackgroundTask)
		if err := tx.NewSelect().
			Model(locked).
			Where("bt.id = ?", id).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}

		if err := locked.ApplyProgress(progress, at); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().
			Model(locked).
			Column("result", "failed_keys", "processed_count", "failed_count", "progress_percent",
				"status", "error_message", "completed_at", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		task = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("taskdb.RecordProgress: %w", err)
	}
	return task, nil
}

func requireRows(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoRowsAffected)
	}
	return nil
}
