package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaScenarios = `
CREATE TABLE IF NOT EXISTS scenarios (
    name TEXT PRIMARY KEY,
    adjustments TEXT NOT NULL,
    baseline_score REAL,
    description TEXT NOT NULL DEFAULT '',
    created TIMESTAMP NOT NULL,
    last_run TIMESTAMP,
    last_result TEXT
);

CREATE INDEX IF NOT EXISTS idx_scenarios_created ON scenarios(created);
`

// schemaAssessments archives scored results as JSON next to the columns
// used for filtering.
const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    engine_version TEXT NOT NULL,
    score REAL NOT NULL,
    level TEXT NOT NULL,
    region TEXT NOT NULL,
    result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(created_at);
CREATE INDEX IF NOT EXISTS idx_assessments_level ON assessments(level);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaScenarios,
		schemaAssessments,
	}
}
