package playervenuemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating player_venues table...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS player_venues (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				visit_key TEXT NOT NULL UNIQUE,
				player_id UUID NOT NULL,
				entity_id UUID NOT NULL,
				venue_id UUID NOT NULL,
				canonical_venue_id UUID,
				total_games_played INTEGER NOT NULL DEFAULT 0,
				total_buy_ins NUMERIC(14,2) NOT NULL DEFAULT 0,
				total_rake NUMERIC(14,2) NOT NULL DEFAULT 0,
				average_buy_in NUMERIC(14,2) NOT NULL DEFAULT 0,
				total_winnings NUMERIC(14,2) NOT NULL DEFAULT 0,
				net_profit NUMERIC(14,2) NOT NULL DEFAULT 0,
				first_played_date TIMESTAMPTZ,
				last_played_date TIMESTAMPTZ,
				targeting_classification VARCHAR(40),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_player_venues_player ON player_venues(player_id);
			CREATE INDEX IF NOT EXISTS idx_player_venues_venue ON player_venues(venue_id);
		`); err != nil {
			return fmt.Errorf("failed to create player_venues table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping player_venues table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS player_venues;`); err != nil {
			return fmt.Errorf("failed to drop player_venues table: %w", err)
		}
		return nil
	})
}
