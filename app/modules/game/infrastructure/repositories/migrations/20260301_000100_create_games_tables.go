package gamemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating games and player record tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS games (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(255),
					venue_id UUID,
					entity_id UUID NOT NULL,
					parent_game_id UUID REFERENCES games(id),
					venue_assignment_status VARCHAR(32) NOT NULL DEFAULT 'PENDING_ASSIGNMENT',
					requires_venue_assignment BOOLEAN NOT NULL DEFAULT FALSE,
					total_unique_players INTEGER,
					total_initial_entries INTEGER,
					buy_in NUMERIC(14,2) NOT NULL DEFAULT 0,
					rake NUMERIC(14,2) NOT NULL DEFAULT 0,
					game_start_date_time TIMESTAMPTZ NOT NULL,
					version INTEGER NOT NULL DEFAULT 1,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_games_entity_start ON games(entity_id, game_start_date_time, id);
				CREATE INDEX IF NOT EXISTS idx_games_needing_venue ON games(game_start_date_time, id)
					WHERE requires_venue_assignment OR venue_id IS NULL;
			`); err != nil {
				return fmt.Errorf("failed to create games table: %w", err)
			}

			for _, table := range []string{"player_entries", "player_results", "player_transactions"} {
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %[1]s (
						id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
						game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
						player_id UUID NOT NULL,
						venue_id UUID,
						entity_id UUID NOT NULL,
						updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE INDEX IF NOT EXISTS idx_%[1]s_game_id ON %[1]s(game_id);
					CREATE INDEX IF NOT EXISTS idx_%[1]s_player_venue ON %[1]s(player_id, venue_id);
				`, table)); err != nil {
					return fmt.Errorf("failed to create %s table: %w", table, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				ALTER TABLE player_entries ADD COLUMN IF NOT EXISTS entry_date TIMESTAMPTZ NOT NULL DEFAULT NOW();
				ALTER TABLE player_results ADD COLUMN IF NOT EXISTS finishing_place INTEGER;
				ALTER TABLE player_results ADD COLUMN IF NOT EXISTS winnings NUMERIC(14,2) NOT NULL DEFAULT 0;
				ALTER TABLE player_transactions ADD COLUMN IF NOT EXISTS type VARCHAR(32) NOT NULL DEFAULT 'BUY_IN';
				ALTER TABLE player_transactions ADD COLUMN IF NOT EXISTS amount NUMERIC(14,2) NOT NULL DEFAULT 0;
				ALTER TABLE player_transactions ADD COLUMN IF NOT EXISTS rake NUMERIC(14,2) NOT NULL DEFAULT 0;
			`); err != nil {
				return fmt.Errorf("failed to add player record columns: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS players (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					entity_id UUID NOT NULL,
					registration_venue_id UUID,
					registration_date TIMESTAMPTZ,
					first_game_played TIMESTAMPTZ,
					venue_assignment_status VARCHAR(32),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS player_summaries (
					player_id UUID PRIMARY KEY,
					venues_visited INTEGER NOT NULL DEFAULT 0 CHECK (venues_visited >= 0),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create player tables: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping games and player record tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS player_summaries;
			DROP TABLE IF EXISTS players;
			DROP TABLE IF EXISTS player_transactions;
			DROP TABLE IF EXISTS player_results;
			DROP TABLE IF EXISTS player_entries;
			DROP TABLE IF EXISTS games CASCADE;
		`); err != nil {
			return fmt.Errorf("failed to drop games tables: %w", err)
		}
		return nil
	})
}
