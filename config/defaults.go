package config

import (
	"time"

	"github.com/BaSui01/crewflow/review"
)

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Log:         DefaultLogConfig(),
		Health:      DefaultHealthConfig(),
		Store:       DefaultStoreConfig(),
		Coordinator: DefaultCoordinatorConfig(),
		Metrics:     DefaultMetricsConfig(),
		Telemetry:   DefaultTelemetryConfig(),
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultHealthConfig mirrors the supervisor's stock policy.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		MaxConcurrentAgents:  10,
		MaxConcurrentPerType: 5,
		MaxConcurrentPerTier: map[int]int{0: 2, 1: 3, 2: 5, 3: 10},
		DefaultTimeout:       5 * time.Minute,
		MaxTimeout:           time.Hour,
		ArchiveAfter:         60 * time.Minute,
		TickInterval:         time.Second,
	}
}

// DefaultStoreConfig returns the default persistence configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    "memory",
		BaseDir: "./data/snapshots",
		Redis: RedisStoreConfig{
			Addr:      "localhost:6379",
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "crewflow:",
		},
		SQL: SQLStoreConfig{
			Driver: "sqlite",
			DSN:    "./data/crewflow.db",
		},
		ArchiveAfter: 60 * time.Minute,
	}
}

// DefaultCoordinatorConfig returns the default run configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		RunTimeout:            0,
		EventBuffer:           256,
		MaxDelegationAttempts: 3,
		Review: ReviewConfig{
			MaxRevisions: review.DefaultMaxRevisions,
			Synthesis: SynthesisConfig{
				Strategy:           "",
				Quorum:             review.DefaultQuorum,
				AgreementThreshold: review.DefaultAgreementThreshold,
			},
		},
	}
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		ListenAddr: ":9091",
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "crewflow",
		SampleRate:   0.1,
	}
}
