package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"trade-report/internal/types"
)

// Keys under which a confirmed session is persisted.
const (
	ReportDataKey    = "report-data"
	ReportCapitalKey = "report-capital"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("state key not found")

var validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// StateStore is a small JSON key-value store backed by one file per key. It
// is safe for concurrent use.
type StateStore struct {
	mu  sync.Mutex
	dir string
}

func NewStateStore(dir string) *StateStore {
	return &StateStore{dir: dir}
}

func (s *StateStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid state key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Put marshals v under key using a write-to-temp then rename sequence so a
// crash never leaves a half-written file behind.
func (s *StateStore) Put(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, v)
}

func (s *StateStore) put(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Get unmarshals the value stored under key into v.
func (s *StateStore) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key, v)
}

func (s *StateStore) get(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *StateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(key)
}

func (s *StateStore) delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveSession persists a confirmed report together with its initial capital.
// Both keys are written under one lock so a concurrent save or load never
// pairs a report with another session's capital.
func (s *StateStore) SaveSession(r types.Report, capital float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(ReportDataKey, r); err != nil {
		return err
	}
	return s.put(ReportCapitalKey, capital)
}

// LoadSession reloads what SaveSession wrote.
func (s *StateStore) LoadSession() (types.Report, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r types.Report
	var capital float64
	if err := s.get(ReportDataKey, &r); err != nil {
		return r, 0, err
	}
	if err := s.get(ReportCapitalKey, &capital); err != nil {
		return r, 0, err
	}
	return r, capital, nil
}

// Clear removes a persisted session so the next run starts from upload.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.delete(ReportDataKey); err != nil {
		return err
	}
	return s.delete(ReportCapitalKey)
}
