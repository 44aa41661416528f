package testutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kingsroom/venue-engine/app/shared/observability"
	"github.com/kingsroom/venue-engine/config"
	"github.com/kingsroom/venue-engine/db/bundb"
	"github.com/kingsroom/venue-engine/integration_tests/containers"
)

// appTables are truncated between tests.
var appTables = []string{
	"player_venues", "player_summaries", "players",
	"player_transactions", "player_results", "player_entries",
	"games", "venues", "background_tasks",
}

// TestEnvironment holds the containers and connections shared by a test package.
type TestEnvironment struct {
	Ctx         context.Context
	PgContainer *postgres.PostgresContainer
	DSN         string
	DB          *bun.DB
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Metrics     observability.Metrics

	natsOnce      sync.Once
	natsContainer *nats.NATSContainer
	natsURL       string
	natsErr       error
}

// NewTestEnvironment starts Postgres, connects and migrates every module plus river.
func NewTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("INTEGRATION_VERBOSE") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	db, err := bundb.Open(ctx, config.PostgresConfig{DSN: dsn}, logger)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	env := &TestEnvironment{
		Ctx:         ctx,
		PgContainer: pgContainer,
		DSN:         dsn,
		DB:          db,
		Logger:      logger,
		Tracer:      noop.NewTracerProvider().Tracer("integration"),
		Metrics:     observability.NewNoop(),
	}

	if err := env.migrate(ctx); err != nil {
		env.Terminate()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return env, nil
}

func (env *TestEnvironment) migrate(ctx context.Context) error {
	for _, m := range bundb.Migrators(env.DB) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", m.Module, err)
		}
		if _, err := m.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s: %w", m.Module, err)
		}
	}

	pool, err := pgxpool.New(ctx, env.DSN)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// Reset truncates every application table and the river job table.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := env.DB.ExecContext(env.Ctx, query); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
	if _, err := env.DB.ExecContext(env.Ctx, "DELETE FROM river_job"); err != nil {
		t.Fatalf("failed to clean river jobs: %v", err)
	}
}

// NATSURL starts a NATS container on first use.
func (env *TestEnvironment) NATSURL(t *testing.T) string {
	t.Helper()
	env.natsOnce.Do(func() {
		env.natsContainer, env.natsURL, env.natsErr = containers.SetupNatsContainer(env.Ctx)
	})
	if env.natsErr != nil {
		t.Skipf("NATS container unavailable: %v", env.natsErr)
	}
	return env.natsURL
}

// Terminate closes connections and stops the containers.
func (env *TestEnvironment) Terminate() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.natsContainer != nil {
		_ = env.natsContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(ctx)
	}
}

// DockerAvailable reports whether a container provider can be reached.
func DockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return provider.Health(ctx) == nil
}
