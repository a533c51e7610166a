package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func newSQLite(t *testing.T) *SQLStore {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "harrier-test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "scenarios.json"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

// testScenarioStore runs the shared store contract against either backend.
func testScenarioStore(t *testing.T, store domain.ScenarioStore) {
	ctx := context.Background()
	baseline := 49.9

	t.Run("Ping", func(t *testing.T) {
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		sc := &domain.Scenario{
			Name:          "typhoon",
			Adjustments:   domain.Adjustments{"climate": 0.3, "port": 0.1},
			BaselineScore: &baseline,
			Description:   "Typhoon season",
			Created:       time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		}
		if err := store.Save(ctx, sc); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx, "typhoon")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected scenario, got nil")
		}
		if got.Description != "Typhoon season" {
			t.Errorf("description = %q", got.Description)
		}
		if len(got.Adjustments) != 2 || got.Adjustments["climate"] != 0.3 || got.Adjustments["port"] != 0.1 {
			t.Errorf("adjustments = %v", got.Adjustments)
		}
		if got.BaselineScore == nil || *got.BaselineScore != baseline {
			t.Errorf("baseline score = %v", got.BaselineScore)
		}
		if got.LastRun != nil || got.LastResult != nil {
			t.Errorf("fresh scenario should have no run: %+v", got)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := store.Save(ctx, &domain.Scenario{Name: "typhoon", Adjustments: domain.Adjustments{"delay": 0.1}})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("InvalidName", func(t *testing.T) {
		if err := store.Save(ctx, &domain.Scenario{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		got, err := store.Load(ctx, "nonexistent")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		if err := store.Save(ctx, &domain.Scenario{
			Name:        "strike",
			Adjustments: domain.Adjustments{"port": 0.4, "delay": 0.3, "carrier": 0.2},
			Created:     time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		list, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(list))
		}
		if list[0].Name != "strike" || list[1].Name != "typhoon" {
			t.Errorf("order = %s, %s", list[0].Name, list[1].Name)
		}
		if list[0].AdjustmentsCount != 3 {
			t.Errorf("adjustments count = %d", list[0].AdjustmentsCount)
		}
	})

	t.Run("Update", func(t *testing.T) {
		err := store.Update(ctx, &domain.Scenario{
			Name:        "typhoon",
			Adjustments: domain.Adjustments{"climate": 0.5},
			Description: "Super typhoon",
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		got, _ := store.Load(ctx, "typhoon")
		if got.Description != "Super typhoon" || got.Adjustments["climate"] != 0.5 || len(got.Adjustments) != 1 {
			t.Errorf("update not applied: %+v", got)
		}
		if got.BaselineScore == nil || *got.BaselineScore != baseline {
			t.Errorf("nil baseline on update should keep the stored one, got %v", got.BaselineScore)
		}
		if !got.Created.Equal(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)) {
			t.Errorf("created changed: %v", got.Created)
		}

		if err := store.Update(ctx, &domain.Scenario{Name: "nonexistent"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RecordRun", func(t *testing.T) {
		at := time.Date(2025, 4, 2, 10, 30, 0, 0, time.UTC)
		summary := domain.ScenarioRunSummary{SimulationScore: 72.7, DeltaFromBaseline: 21.7, RiskLevel: "Medium-High"}
		if err := store.RecordRun(ctx, "typhoon", at, summary); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}

		got, _ := store.Load(ctx, "typhoon")
		if got.LastRun == nil || !got.LastRun.Equal(at) {
			t.Errorf("last run = %v", got.LastRun)
		}
		if got.LastResult == nil || *got.LastResult != summary {
			t.Errorf("last result = %+v", got.LastResult)
		}

		if err := store.RecordRun(ctx, "nonexistent", at, summary); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := store.Count(ctx)
		if err != nil || n != 2 {
			t.Errorf("Count = %d, %v", n, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "strike"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := store.Load(ctx, "strike")
		if err != nil || got != nil {
			t.Errorf("deleted scenario still loads: %v, %v", got, err)
		}
		if err := store.Delete(ctx, "strike"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if n, _ := store.Count(ctx); n != 1 {
			t.Errorf("Count after delete = %d", n)
		}
	})
}

func TestSQLiteScenarioStore(t *testing.T) {
	testScenarioStore(t, newSQLite(t))
}

func TestAssessmentArchive(t *testing.T) {
	repo := newSQLite(t)
	ctx := context.Background()

	created := time.Date(2025, 11, 15, 9, 0, 0, 0, time.UTC)
	a := &domain.Assessment{
		ID:            "a-001",
		CreatedAt:     created,
		EngineVersion: "harrier-2.0",
		Result: &domain.ScoredResult{
			Score:   51.0,
			Level:   domain.LevelMedium,
			Region:  domain.RegionSEA,
			Factors: domain.RiskFactors{domain.FactorDelay: 0.67, domain.FactorPort: 0.6},
		},
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveAssessment(ctx, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		got, err := repo.GetAssessment(ctx, "a-001")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got.EngineVersion != "harrier-2.0" || !got.CreatedAt.Equal(created) {
			t.Errorf("assessment = %+v", got)
		}
		if got.Result.Score != 51.0 || got.Result.Level != domain.LevelMedium {
			t.Errorf("result = %+v", got.Result)
		}
		if got.Result.Factors[domain.FactorDelay] != 0.67 {
			t.Errorf("factors = %v", got.Result.Factors)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if err := repo.SaveAssessment(ctx, &domain.Assessment{ID: "x"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetAssessment(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		later := *a
		later.ID = "a-002"
		later.CreatedAt = created.Add(time.Hour)
		if err := repo.SaveAssessment(ctx, &later); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		list, err := repo.ListAssessments(ctx, created.Add(-time.Minute), 10)
		if err != nil {
			t.Fatalf("ListAssessments failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "a-002" {
			t.Errorf("expected newest first, got %d items", len(list))
		}

		list, _ = repo.ListAssessments(ctx, created.Add(30*time.Minute), 10)
		if len(list) != 1 {
			t.Errorf("since filter: expected 1, got %d", len(list))
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestNewScenarioStore(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		s, err := NewScenarioStore(domain.ScenarioStoreConfig{Type: "file", Path: filepath.Join(t.TempDir(), "s.json")}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := s.(*FileStore); !ok {
			t.Errorf("expected *FileStore, got %T", s)
		}
	})

	t.Run("SQL", func(t *testing.T) {
		db := newSQLite(t)
		s, err := NewScenarioStore(domain.ScenarioStoreConfig{Type: "sql"}, db)
		if err != nil || s != domain.ScenarioStore(db) {
			t.Errorf("expected the shared SQL store, got %T, %v", s, err)
		}
		if _, err := NewScenarioStore(domain.ScenarioStoreConfig{Type: "sql"}, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput without a database, got %v", err)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := NewScenarioStore(domain.ScenarioStoreConfig{Type: "bolt"}, nil); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestRebind(t *testing.T) {
	repo := &SQLStore{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
