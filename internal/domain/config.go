package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig    `json:"repository"`
	Scenarios  ScenarioStoreConfig `json:"scenarios"`
	Cache      CacheConfig         `json:"cache"`
	EventBus   EventBusConfig      `json:"eventBus"`

	// Scoring collaborators
	Climate  ClimateConfig  `json:"climate"`
	Reasoner ReasonerConfig `json:"reasoner"`
	I18n     I18nConfig     `json:"i18n"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// ClimateConfig holds climate sub-model settings.
type ClimateConfig struct {
	// ENSOState is el_nino, la_nina or neutral
	ENSOState string `json:"ensoState"`
}

// I18nConfig holds translator settings.
type I18nConfig struct {
	DefaultLanguage Language `json:"defaultLanguage"`

	// OverrideDir holds optional <lang>.json files layered over the embedded tables
	OverrideDir string `json:"overrideDir"`

	// Watch reloads override files when they change
	Watch bool `json:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity runs on a JSON scenario file, SQLite, LRU and channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Scenarios: ScenarioStoreConfig{
			Type: "file",
			Path: "./data/scenarios.json",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ResultTTL:    time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Climate: ClimateConfig{
			ENSOState: "neutral",
		},
		Reasoner: ReasonerConfig{
			Provider: "deterministic",
			Timeout:  10,
		},
		I18n: I18nConfig{
			DefaultLanguage: LanguageEnglish,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Scenarios = ScenarioStoreConfig{
		Type: "sql",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		ResultTTL:      6 * time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
