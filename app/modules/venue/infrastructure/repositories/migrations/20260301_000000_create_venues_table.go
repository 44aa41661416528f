package venuemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating venues table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS venues (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					entity_id UUID NOT NULL,
					canonical_venue_id UUID REFERENCES venues(id),
					name VARCHAR(200) NOT NULL,
					aliases TEXT[],
					address TEXT,
					city VARCHAR(120),
					country VARCHAR(120),
					fee NUMERIC(14,2) NOT NULL DEFAULT 0,
					is_special BOOLEAN NOT NULL DEFAULT FALSE,
					venue_number INTEGER NOT NULL DEFAULT 0,
					version INTEGER NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS uq_venues_canonical_entity
					ON venues(canonical_venue_id, entity_id);
				CREATE INDEX IF NOT EXISTS idx_venues_entity_id ON venues(entity_id);
			`); err != nil {
				return fmt.Errorf("failed to create venues table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping venues table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS venues CASCADE;`); err != nil {
			return fmt.Errorf("failed to drop venues table: %w", err)
		}
		return nil
	})
}
