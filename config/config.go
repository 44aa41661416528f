package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kingsroom/venue-engine/app/shared/observability"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const (
	// DefaultAsyncThreshold is the player count at which a reassignment is queued instead of run inline.
	DefaultAsyncThreshold = 50
	// DefaultQueueMaxWorkers bounds concurrent reassignment jobs per process.
	DefaultQueueMaxWorkers = 10
	// DefaultHTTPAddr is where the RPC surface listens.
	DefaultHTTPAddr = ":8080"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Reassignment  ReassignmentConfig  `yaml:"reassignment"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL disables notifications.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the RPC listener configuration.
type HTTPConfig struct {
	Addr           string  `yaml:"addr"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
}

// JWTConfig holds the bearer token settings for the RPC surface.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// ReassignmentConfig holds the dispatch settings for venue reassignment.
type ReassignmentConfig struct {
	// QueueName is the river queue used for async dispatch. Empty disables async dispatch.
	QueueName         string              `yaml:"queue_name"`
	AsyncThreshold    int                 `yaml:"async_threshold"`
	QueueMaxWorkers   int                 `yaml:"queue_max_workers"`
	UnassignedVenueID sharedtypes.VenueID `yaml:"unassigned_venue_id"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("HTTP_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TRUST_PROXY value: %v", err)
		}
		cfg.HTTP.TrustProxy = b
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
	if v := os.Getenv("REASSIGNMENT_QUEUE"); v != "" {
		cfg.Reassignment.QueueName = v
	}
	if v := os.Getenv("REASSIGNMENT_ASYNC_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REASSIGNMENT_ASYNC_THRESHOLD value: %v", err)
		}
		cfg.Reassignment.AsyncThreshold = n
	}
	if v := os.Getenv("REASSIGNMENT_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REASSIGNMENT_MAX_WORKERS value: %v", err)
		}
		cfg.Reassignment.QueueMaxWorkers = n
	}
	if v := os.Getenv("UNASSIGNED_VENUE_ID"); v != "" {
		cfg.Reassignment.UnassignedVenueID = sharedtypes.VenueID(v)
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.HTTP.RateLimit <= 0 {
		cfg.HTTP.RateLimit = 20
	}
	if cfg.HTTP.RateLimitBurst <= 0 {
		cfg.HTTP.RateLimitBurst = 40
	}
	if cfg.Reassignment.AsyncThreshold <= 0 {
		cfg.Reassignment.AsyncThreshold = DefaultAsyncThreshold
	}
	if cfg.Reassignment.QueueMaxWorkers <= 0 {
		cfg.Reassignment.QueueMaxWorkers = DefaultQueueMaxWorkers
	}
	if cfg.Reassignment.UnassignedVenueID == "" {
		cfg.Reassignment.UnassignedVenueID = sharedtypes.UnassignedVenueSentinel
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = "production"
	}
}

// ToObsConfig maps the app config onto the observability bundle config.
func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:    "venue-engine",
		Environment:    appCfg.Observability.Environment,
		MetricsEnabled: appCfg.Observability.MetricsAddress != "",
	}
}
