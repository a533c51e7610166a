package domain

import (
	"context"
	"time"
)

// ScenarioStore persists named scenarios. It is the only durable state the
// scoring core owns.
type ScenarioStore interface {
	// Save stores a new scenario. Fails on a duplicate name.
	Save(ctx context.Context, s *Scenario) error

	// Load returns the scenario, or nil, nil when it does not exist.
	Load(ctx context.Context, name string) (*Scenario, error)

	// List returns summaries sorted by creation time, newest first.
	List(ctx context.Context) ([]ScenarioSummary, error)

	// Update replaces adjustments and description of an existing scenario.
	Update(ctx context.Context, s *Scenario) error

	// RecordRun stamps last_run and last_result.
	RecordRun(ctx context.Context, name string, at time.Time, summary ScenarioRunSummary) error

	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// AssessmentRepository archives scored assessments.
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context, since time.Time, limit int) ([]*Assessment, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ScenarioStoreConfig selects the scenario store backend.
type ScenarioStoreConfig struct {
	// Type is "file" (single JSON document) or "sql" (shares the repository)
	Type string

	// Path of the JSON document for the file store
	Path string
}
