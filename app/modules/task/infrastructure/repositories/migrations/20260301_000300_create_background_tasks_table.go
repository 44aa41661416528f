package taskmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating background_tasks table...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS background_tasks (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				entity_id UUID,
				status VARCHAR(16) NOT NULL,
				task_type VARCHAR(64) NOT NULL,
				target_type VARCHAR(32),
				target_id TEXT,
				target_ids TEXT[],
				target_count INTEGER NOT NULL DEFAULT 0,
				failed_keys TEXT[],
				payload TEXT,
				processed_count INTEGER NOT NULL DEFAULT 0,
				failed_count INTEGER NOT NULL DEFAULT 0,
				progress_percent INTEGER NOT NULL DEFAULT 0,
				result JSONB,
				error_message TEXT,
				initiated_by TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				started_at TIMESTAMPTZ,
				completed_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_background_tasks_entity_status ON background_tasks(entity_id, status);
		`); err != nil {
			return fmt.Errorf("failed to create background_tasks table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping background_tasks table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS background_tasks;`); err != nil {
			return fmt.Errorf("failed to drop background_tasks table: %w", err)
		}
		return nil
	})
}
