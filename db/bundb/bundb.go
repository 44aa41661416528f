package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/config"
)

// Open connects to Postgres and returns a bun.DB with every model registered.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}

	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	registerModels(db)

	logger.InfoContext(ctx, "Connected to Postgres",
		slog.Int("max_open_conns", sqldb.Stats().MaxOpenConnections),
	)
	return db, nil
}

func registerModels(db *bun.DB) {
	db.RegisterModel(
		(*venuedb.Venue)(nil),
		(*gamedb.Game)(nil),
		(*gamedb.PlayerEntry)(nil),
		(*gamedb.PlayerResult)(nil),
		(*gamedb.PlayerTransaction)(nil),
		(*gamedb.Player)(nil),
		(*gamedb.PlayerSummary)(nil),
		(*playervenuedb.PlayerVenue)(nil),
		(*taskdb.BackgroundTask)(nil),
	)
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqldb, nil
}
