// Package repository provides data persistence implementations: the
// scenario store (JSON document or SQL) and the assessment archive.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLStore implements domain.ScenarioStore and domain.AssessmentRepository
// using database/sql. Works with both SQLite and PostgreSQL drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New opens the configured database and runs migrations.
func New(cfg domain.RepositoryConfig) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLStore{
		db:     db,
		driver: cfg.Driver,
		now:    time.Now,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLStore) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a new scenario.
func (r *SQLStore) Save(ctx context.Context, s *domain.Scenario) error {
	if err := validateScenario(s); err != nil {
		return err
	}

	adjustments, err := json.Marshal(s.Adjustments)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created := s.Created
	if created.IsZero() {
		created = r.now()
	}

	query := `
		INSERT INTO scenarios (name, adjustments, baseline_score, description, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		s.Name, string(adjustments), nullFloat(s.BaselineScore), s.Description, created.UTC(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: scenario %q", ErrDuplicate, s.Name)
	}
	return nil
}

// Load returns the named scenario, or nil when it does not exist.
func (r *SQLStore) Load(ctx context.Context, name string) (*domain.Scenario, error) {
	query := `
		SELECT name, adjustments, baseline_score, description, created, last_run, last_result
		FROM scenarios
		WHERE name = ?
	`

	s, err := scanScenario(r.db.QueryRowContext(ctx, r.rebind(query), name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns scenario summaries, newest first.
func (r *SQLStore) List(ctx context.Context) ([]domain.ScenarioSummary, error) {
	query := `
		SELECT name, adjustments, baseline_score, description, created, last_run, last_result
		FROM scenarios
		ORDER BY created DESC, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.ScenarioSummary{}
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(s))
	}

	return summaries, rows.Err()
}

// Update replaces the adjustments and description of an existing scenario.
// A nil baseline score keeps the stored one.
func (r *SQLStore) Update(ctx context.Context, s *domain.Scenario) error {
	if err := validateScenario(s); err != nil {
		return err
	}

	adjustments, err := json.Marshal(s.Adjustments)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	query := `
		UPDATE scenarios
		SET adjustments = ?, description = ?, baseline_score = COALESCE(?, baseline_score)
		WHERE name = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(adjustments), s.Description, nullFloat(s.BaselineScore), s.Name,
	)
	return affectedOne(result, err)
}

// RecordRun stamps the last run time and result summary.
func (r *SQLStore) RecordRun(ctx context.Context, name string, at time.Time, summary domain.ScenarioRunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	query := `
		UPDATE scenarios
		SET last_run = ?, last_result = ?
		WHERE name = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), at.UTC(), string(data), name)
	return affectedOne(result, err)
}

// Delete removes a scenario.
func (r *SQLStore) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM scenarios WHERE name = ?`), name)
	return affectedOne(result, err)
}

// Count returns the number of stored scenarios.
func (r *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&n)
	return n, err
}

// SaveAssessment archives a scored assessment.
func (r *SQLStore) SaveAssessment(ctx context.Context, a *domain.Assessment) error {
	if a == nil || a.ID == "" || a.Result == nil {
		return fmt.Errorf("%w: assessment requires id and result", ErrInvalidInput)
	}

	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	query := `
		INSERT INTO assessments (id, created_at, engine_version, score, level, region, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.CreatedAt.UTC(), a.EngineVersion,
		a.Result.Score, string(a.Result.Level), string(a.Result.Region),
		string(result),
	)
	return err
}

// GetAssessment retrieves an archived assessment by ID.
func (r *SQLStore) GetAssessment(ctx context.Context, id string) (*domain.Assessment, error) {
	query := `
		SELECT id, created_at, engine_version, result
		FROM assessments
		WHERE id = ?
	`

	a, err := scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessments returns assessments created at or after since, newest
// first. A non-positive limit defaults to 100.
func (r *SQLStore) ListAssessments(ctx context.Context, since time.Time, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, created_at, engine_version, result
		FROM assessments
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLStore) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLStore) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (*domain.Scenario, error) {
	var s domain.Scenario
	var adjustments string
	var baseline sql.NullFloat64
	var lastRun sql.NullTime
	var lastResult sql.NullString

	if err := row.Scan(
		&s.Name, &adjustments, &baseline, &s.Description,
		&s.Created, &lastRun, &lastResult,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(adjustments), &s.Adjustments); err != nil {
		return nil, fmt.Errorf("failed to parse adjustments for %s: %w", s.Name, err)
	}
	if baseline.Valid {
		v := baseline.Float64
		s.BaselineScore = &v
	}
	s.Created = s.Created.UTC()
	if lastRun.Valid {
		t := lastRun.Time.UTC()
		s.LastRun = &t
	}
	if lastResult.Valid && lastResult.String != "" {
		var summary domain.ScenarioRunSummary
		if err := json.Unmarshal([]byte(lastResult.String), &summary); err != nil {
			return nil, fmt.Errorf("failed to parse last result for %s: %w", s.Name, err)
		}
		s.LastResult = &summary
	}

	return &s, nil
}

func scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var result string

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.EngineVersion, &result); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()

	a.Result = &domain.ScoredResult{}
	if err := json.Unmarshal([]byte(result), a.Result); err != nil {
		return nil, fmt.Errorf("failed to parse assessment %s: %w", a.ID, err)
	}
	return &a, nil
}

func affectedOne(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func validateScenario(s *domain.Scenario) error {
	if s == nil || strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: scenario name is required", ErrInvalidInput)
	}
	return nil
}

func summarize(s *domain.Scenario) domain.ScenarioSummary {
	return domain.ScenarioSummary{
		Name:             s.Name,
		Description:      s.Description,
		AdjustmentsCount: len(s.Adjustments),
		Created:          s.Created,
		LastRun:          s.LastRun,
	}
}

func sortSummaries(out []domain.ScenarioSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Name < out[j].Name
	})
}

// NewScenarioStore creates the configured scenario store. The "sql" type
// shares db, which must be open.
func NewScenarioStore(cfg domain.ScenarioStoreConfig, db *SQLStore) (domain.ScenarioStore, error) {
	switch cfg.Type {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "./data/scenarios.json"
		}
		return NewFileStore(path)
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("%w: sql scenario store requires a database", ErrInvalidInput)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported scenario store type: %s", cfg.Type)
	}
}
