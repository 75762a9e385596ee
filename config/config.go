package config

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/crewflow/crew"
	"github.com/BaSui01/crewflow/health"
	"github.com/BaSui01/crewflow/persistence"
	"github.com/BaSui01/crewflow/review"
	"github.com/BaSui01/crewflow/types"
)

// Config is the complete crewflow runtime configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Health configures concurrency ceilings and task timeouts.
	Health HealthConfig `yaml:"health" env:"HEALTH"`

	// Store configures run snapshot persistence.
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Coordinator configures crew run behavior.
	Coordinator CoordinatorConfig `yaml:"coordinator" env:"COORDINATOR"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry configures OTLP traces and metrics export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs, e.g. stdout or file paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with file:line.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// EnableStacktrace captures stacks on error-level entries.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// Build constructs a zap logger from the log configuration.
func (l LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}

	zc := zap.NewProductionConfig()
	if l.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableCaller = !l.EnableCaller
	zc.DisableStacktrace = !l.EnableStacktrace
	if len(l.OutputPaths) > 0 {
		zc.OutputPaths = l.OutputPaths
	}
	return zc.Build()
}

// HealthConfig configures the supervisor's concurrency and timeout policy.
// Tier ceilings are keyed by tier number so they survive YAML round trips.
type HealthConfig struct {
	MaxConcurrentAgents  int           `yaml:"max_concurrent_agents" env:"MAX_CONCURRENT_AGENTS"`
	MaxConcurrentPerType int           `yaml:"max_concurrent_per_type" env:"MAX_CONCURRENT_PER_TYPE"`
	MaxConcurrentPerTier map[int]int   `yaml:"max_concurrent_per_tier" env:"-"`
	DefaultTimeout       time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
	MaxTimeout           time.Duration `yaml:"max_timeout" env:"MAX_TIMEOUT"`
	ArchiveAfter         time.Duration `yaml:"archive_after" env:"ARCHIVE_AFTER"`
	TickInterval         time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
}

// Policy converts the configuration into the supervisor policy.
func (h HealthConfig) Policy() health.Policy {
	p := health.Policy{
		MaxConcurrentAgents:  h.MaxConcurrentAgents,
		MaxConcurrentPerType: h.MaxConcurrentPerType,
		DefaultTimeout:       h.DefaultTimeout,
		MaxTimeout:           h.MaxTimeout,
		ArchiveAfter:         h.ArchiveAfter,
		TickInterval:         h.TickInterval,
	}
	if len(h.MaxConcurrentPerTier) > 0 {
		p.MaxConcurrentPerTier = make(map[types.Tier]int, len(h.MaxConcurrentPerTier))
		for tier, ceiling := range h.MaxConcurrentPerTier {
			p.MaxConcurrentPerTier[types.Tier(tier)] = ceiling
		}
	}
	return p
}

// StoreConfig configures the snapshot store backend.
type StoreConfig struct {
	// Type is one of memory, file, redis, sql.
	Type    string           `yaml:"type" env:"TYPE"`
	BaseDir string           `yaml:"base_dir" env:"BASE_DIR"`
	Redis   RedisStoreConfig `yaml:"redis" env:"REDIS"`
	SQL     SQLStoreConfig   `yaml:"sql" env:"SQL"`
	// ArchiveAfter is the retention window for Cleanup.
	ArchiveAfter time.Duration `yaml:"archive_after" env:"ARCHIVE_AFTER"`
}

// RedisStoreConfig configures the redis snapshot backend.
type RedisStoreConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// SQLStoreConfig configures the gorm snapshot backend.
type SQLStoreConfig struct {
	// Driver selects the dialector: sqlite or postgres.
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// StoreConfig converts the configuration into the persistence factory input.
func (s StoreConfig) StoreConfig() persistence.StoreConfig {
	return persistence.StoreConfig{
		Type:    persistence.StoreType(s.Type),
		BaseDir: s.BaseDir,
		Redis: persistence.RedisStoreConfig{
			Addr:      s.Redis.Addr,
			Password:  s.Redis.Password,
			DB:        s.Redis.DB,
			PoolSize:  s.Redis.PoolSize,
			KeyPrefix: s.Redis.KeyPrefix,
		},
		SQL: persistence.SQLStoreConfig{
			Driver: s.SQL.Driver,
			DSN:    s.SQL.DSN,
		},
		ArchiveAfter: s.ArchiveAfter,
	}
}

// CoordinatorConfig configures crew run behavior.
type CoordinatorConfig struct {
	RunTimeout            time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
	EventBuffer           int           `yaml:"event_buffer" env:"EVENT_BUFFER"`
	MaxDelegationAttempts int           `yaml:"max_delegation_attempts" env:"MAX_DELEGATION_ATTEMPTS"`
	Review                ReviewConfig  `yaml:"review" env:"REVIEW"`
}

// ReviewConfig configures the review gate and consensus synthesis.
type ReviewConfig struct {
	MaxRevisions int             `yaml:"max_revisions" env:"MAX_REVISIONS"`
	Synthesis    SynthesisConfig `yaml:"synthesis" env:"SYNTHESIS"`
}

// SynthesisConfig configures consensus output merging.
type SynthesisConfig struct {
	// Strategy is one of merge, vote, consensus, best_pick,
	// weighted_average, chain.
	Strategy           string  `yaml:"strategy" env:"STRATEGY"`
	Quorum             int     `yaml:"quorum" env:"QUORUM"`
	AgreementThreshold float64 `yaml:"agreement_threshold" env:"AGREEMENT_THRESHOLD"`
}

// CrewConfig converts the configuration into the coordinator's run config.
func (c CoordinatorConfig) CrewConfig() crew.Config {
	return crew.Config{
		RunTimeout:            c.RunTimeout,
		EventBuffer:           c.EventBuffer,
		MaxDelegationAttempts: c.MaxDelegationAttempts,
		Review: review.Config{
			MaxRevisions: c.Review.MaxRevisions,
			Synthesis: review.SynthesisConfig{
				Strategy:           review.Strategy(c.Review.Synthesis.Strategy),
				Quorum:             c.Review.Synthesis.Quorum,
				AgreementThreshold: c.Review.Synthesis.AgreementThreshold,
			},
		},
	}
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []string

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	if c.Health.MaxConcurrentAgents <= 0 {
		errs = append(errs, "max_concurrent_agents must be positive")
	}
	if c.Health.DefaultTimeout <= 0 {
		errs = append(errs, "default_timeout must be positive")
	}
	if c.Health.MaxTimeout < c.Health.DefaultTimeout {
		errs = append(errs, "max_timeout must be at least default_timeout")
	}

	switch persistence.StoreType(c.Store.Type) {
	case persistence.StoreTypeMemory, persistence.StoreTypeFile,
		persistence.StoreTypeRedis, persistence.StoreTypeSQL:
	default:
		errs = append(errs, fmt.Sprintf("unknown store type %q", c.Store.Type))
	}

	if s := c.Coordinator.Review.Synthesis.Strategy; s != "" {
		if _, err := review.ParseStrategy(s); err != nil {
			errs = append(errs, fmt.Sprintf("unknown synthesis strategy %q", s))
		}
	}
	if c.Coordinator.Review.MaxRevisions < 0 {
		errs = append(errs, "max_revisions must not be negative")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
