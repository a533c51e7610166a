package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// documentVersion is the scenario document format version.
const documentVersion = "1.0"

// document is the on-disk layout of the scenario store.
type document struct {
	Scenarios map[string]*domain.Scenario `json:"scenarios"`
	Metadata  documentMetadata            `json:"metadata"`
}

type documentMetadata struct {
	Created     time.Time `json:"created"`
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
}

// FileStore keeps scenarios in a single JSON document. Writes go to a
// temporary file that is renamed over the document, so readers always see
// a complete document. Writers are serialized in-process by a one-slot
// channel, whose blocked senders are served in arrival order, and across
// processes by an advisory lock on <path>.lock.
type FileStore struct {
	path string
	sem  chan struct{}
	now  func() time.Time
}

// NewFileStore opens the document at path, creating it when absent.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: scenario store path is required", ErrInvalidInput)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scenario store directory: %w", err)
		}
	}

	s := &FileStore{
		path: path,
		sem:  make(chan struct{}, 1),
		now:  time.Now,
	}

	err := s.withLock(context.Background(), func() error {
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			return s.write(s.emptyDocument())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Save stores a new scenario.
func (s *FileStore) Save(ctx context.Context, sc *domain.Scenario) error {
	if err := validateScenario(sc); err != nil {
		return err
	}

	return s.mutate(ctx, func(doc *document) error {
		if _, exists := doc.Scenarios[sc.Name]; exists {
			return fmt.Errorf("%w: scenario %q", ErrDuplicate, sc.Name)
		}

		stored := cloneScenario(sc)
		if stored.Created.IsZero() {
			stored.Created = s.now()
		}
		stored.Created = stored.Created.UTC()
		stored.LastRun = nil
		stored.LastResult = nil
		doc.Scenarios[sc.Name] = stored
		return nil
	})
}

// Load returns the named scenario, or nil when it does not exist.
func (s *FileStore) Load(ctx context.Context, name string) (*domain.Scenario, error) {
	var out *domain.Scenario
	err := s.view(ctx, func(doc *document) {
		if sc, ok := doc.Scenarios[name]; ok {
			out = cloneScenario(sc)
		}
	})
	return out, err
}

// List returns scenario summaries, newest first.
func (s *FileStore) List(ctx context.Context) ([]domain.ScenarioSummary, error) {
	out := []domain.ScenarioSummary{}
	err := s.view(ctx, func(doc *document) {
		for _, sc := range doc.Scenarios {
			out = append(out, summarize(sc))
		}
	})
	sortSummaries(out)
	return out, err
}

// Update replaces the adjustments and description of an existing scenario.
// A nil baseline score keeps the stored one.
func (s *FileStore) Update(ctx context.Context, sc *domain.Scenario) error {
	if err := validateScenario(sc); err != nil {
		return err
	}

	return s.mutate(ctx, func(doc *document) error {
		stored, ok := doc.Scenarios[sc.Name]
		if !ok {
			return ErrNotFound
		}
		stored.Adjustments = sc.Adjustments.Clone()
		stored.Description = sc.Description
		if sc.BaselineScore != nil {
			v := *sc.BaselineScore
			stored.BaselineScore = &v
		}
		return nil
	})
}

// RecordRun stamps the last run time and result summary.
func (s *FileStore) RecordRun(ctx context.Context, name string, at time.Time, summary domain.ScenarioRunSummary) error {
	return s.mutate(ctx, func(doc *document) error {
		stored, ok := doc.Scenarios[name]
		if !ok {
			return ErrNotFound
		}
		t := at.UTC()
		stored.LastRun = &t
		stored.LastResult = &summary
		return nil
	})
}

// Delete removes a scenario.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc *document) error {
		if _, ok := doc.Scenarios[name]; !ok {
			return ErrNotFound
		}
		delete(doc.Scenarios, name)
		return nil
	})
}

// Count returns the number of stored scenarios.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, func(doc *document) {
		n = len(doc.Scenarios)
	})
	return n, err
}

// Ping checks that the document is readable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}

// Close is a no-op; the store holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) view(ctx context.Context, fn func(doc *document)) error {
	return s.withLock(ctx, func() error {
		doc, err := s.loadOrReset()
		if err != nil {
			return err
		}
		fn(doc)
		return nil
	})
}

func (s *FileStore) mutate(ctx context.Context, fn func(doc *document) error) error {
	return s.withLock(ctx, func() error {
		doc, err := s.loadOrReset()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		doc.Metadata.LastUpdated = s.now().UTC()

		if err := s.write(doc); err != nil {
			slog.Warn("scenario store write failed, retrying", "path", s.path, "error", err)
			if err := s.write(doc); err != nil {
				return fmt.Errorf("failed to write scenario store: %w", err)
			}
		}
		return nil
	})
}

// withLock runs fn holding both the in-process and the file lock.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	lf, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open scenario store lock: %w", err)
	}
	defer lf.Close()

	if err := lockFile(lf); err != nil {
		return fmt.Errorf("failed to lock scenario store: %w", err)
	}
	defer unlockFile(lf)

	return fn()
}

// loadOrReset reads the document. An unreadable document is replaced by an
// empty one and read again once.
func (s *FileStore) loadOrReset() (*document, error) {
	doc, err := s.load()
	if err == nil {
		return doc, nil
	}

	slog.Warn("scenario store unreadable, reinitializing", "path", s.path, "error", err)
	if werr := s.write(s.emptyDocument()); werr != nil {
		return nil, fmt.Errorf("failed to reinitialize scenario store: %w", werr)
	}

	doc, err = s.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario store: %w", err)
	}
	return doc, nil
}

func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.emptyDocument(), nil
	}
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Scenarios == nil {
		doc.Scenarios = make(map[string]*domain.Scenario)
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = documentVersion
	}
	return &doc, nil
}

func (s *FileStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, filepath.Ext(base))+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) emptyDocument() *document {
	now := s.now().UTC()
	return &document{
		Scenarios: make(map[string]*domain.Scenario),
		Metadata: documentMetadata{
			Created:     now,
			Version:     documentVersion,
			LastUpdated: now,
		},
	}
}

func cloneScenario(sc *domain.Scenario) *domain.Scenario {
	out := *sc
	out.Adjustments = sc.Adjustments.Clone()
	if sc.BaselineScore != nil {
		v := *sc.BaselineScore
		out.BaselineScore = &v
	}
	if sc.LastRun != nil {
		t := *sc.LastRun
		out.LastRun = &t
	}
	if sc.LastResult != nil {
		r := *sc.LastResult
		out.LastResult = &r
	}
	return &out
}
