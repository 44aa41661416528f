package bundb

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	gamemigrations "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories/migrations"
	playervenuemigrations "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories/migrations"
	taskmigrations "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories/migrations"
	venuemigrations "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories/migrations"
)

// ModuleMigrator pairs a module name with its migrator.
type ModuleMigrator struct {
	Module   string
	Migrator *migrate.Migrator
}

// Migrators returns one migrator per module, in dependency order: venues
// before games, games before the aggregates that reference them. Each module
// keeps its own bookkeeping tables so groups roll back independently.
func Migrators(db *bun.DB) []ModuleMigrator {
	return []ModuleMigrator{
		{Module: "venue", Migrator: migrate.NewMigrator(db, venuemigrations.Migrations, migrate.WithTableName("bun_migrations_venue"), migrate.WithLocksTableName("bun_migration_locks_venue"))},
		{Module: "game", Migrator: migrate.NewMigrator(db, gamemigrations.Migrations, migrate.WithTableName("bun_migrations_game"), migrate.WithLocksTableName("bun_migration_locks_game"))},
		{Module: "playervenue", Migrator: migrate.NewMigrator(db, playervenuemigrations.Migrations, migrate.WithTableName("bun_migrations_playervenue"), migrate.WithLocksTableName("bun_migration_locks_playervenue"))},
		{Module: "task", Migrator: migrate.NewMigrator(db, taskmigrations.Migrations, migrate.WithTableName("bun_migrations_task"), migrate.WithLocksTableName("bun_migration_locks_task"))},
	}
}
