package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestFileScenarioStore(t *testing.T) {
	testScenarioStore(t, newFileStore(t))
}

func TestFileStoreDocument(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &domain.Scenario{Name: "rain", Adjustments: domain.Adjustments{"climate": 0.2}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read document: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if raw["metadata"]["version"] != "1.0" {
		t.Errorf("metadata = %v", raw["metadata"])
	}
	for _, key := range []string{"created", "last_updated"} {
		if _, ok := raw["metadata"][key]; !ok {
			t.Errorf("metadata missing %s", key)
		}
	}

	rain, ok := raw["scenarios"]["rain"].(map[string]any)
	if !ok {
		t.Fatalf("scenario not keyed by name: %v", raw["scenarios"])
	}
	if rain["last_run"] != nil {
		t.Errorf("last_run should be null, got %v", rain["last_run"])
	}
	if _, ok := rain["baseline_score"]; !ok {
		t.Error("baseline_score should be present")
	}
	if created, _ := rain["created"].(string); !strings.HasSuffix(created, "Z") {
		t.Errorf("created should be UTC ISO-8601, got %q", created)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	ctx := context.Background()

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := first.Save(ctx, &domain.Scenario{Name: "peak", Adjustments: domain.Adjustments{"equipment": 0.2}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := second.Load(ctx, "peak")
	if err != nil || got == nil || got.Adjustments["equipment"] != 0.2 {
		t.Errorf("scenario not persisted: %+v, %v", got, err)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt document: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("corrupt document should be reinitialized, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}

	if err := s.Save(ctx, &domain.Scenario{Name: "after", Adjustments: domain.Adjustments{"port": 0.1}}); err != nil {
		t.Fatalf("Save after reinitialize failed: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d", n)
	}
}

func TestFileStoreLoadIsolation(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, &domain.Scenario{Name: "iso", Adjustments: domain.Adjustments{"delay": 0.1}})

	got, _ := s.Load(ctx, "iso")
	got.Adjustments["delay"] = 0.9

	again, _ := s.Load(ctx, "iso")
	if again.Adjustments["delay"] != 0.1 {
		t.Errorf("mutating a loaded scenario changed the store: %v", again.Adjustments)
	}
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	ctx := context.Background()

	// two handles on one document behave like two processes
	a, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	b, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for j, store := range []*FileStore{a, b} {
			wg.Add(1)
			go func(name string, s *FileStore) {
				defer wg.Done()
				errs <- s.Save(ctx, &domain.Scenario{Name: name, Adjustments: domain.Adjustments{"port": 0.1}})
			}(fmt.Sprintf("s-%d-%d", i, j), store)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent save failed: %v", err)
		}
	}

	n, err := a.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 40 {
		t.Errorf("expected 40 scenarios, lost writes: got %d", n)
	}
}

func TestFileStoreCanceled(t *testing.T) {
	s := newFileStore(t)

	// hold the in-process lock so the call has to wait
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Count(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
