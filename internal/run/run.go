// Package run provides the domain model for asynchronous build runs. A Run
// moves through a linear lifecycle:
//
//	pending → running → complete | failed.
//
// The store is the authoritative source of truth for run state; HTTP handlers
// read and write exclusively through it.
package run

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wheelhouse/internal/pipeline"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// ErrNotFound reports that a run id is unknown to the store.
var ErrNotFound = errors.New("run not found")

// Run represents a single asynchronous build.
type Run struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Profile   string    `json:"profile"`
	Versions  string    `json:"versions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LogPath is the server-local tool log for this run, served through the
	// logs endpoint rather than exposed directly.
	LogPath string `json:"-"`

	// OutputDir is populated once the run reaches StatusComplete.
	OutputDir string `json:"output_dir,omitempty"`

	// Artefacts lists the staged files of a completed run.
	Artefacts []pipeline.Artefact `json:"artefacts,omitempty"`

	// Uploaded counts artefacts that reached the storage backend.
	Uploaded int `json:"uploaded"`

	// Error is non-empty if the run reached StatusFailed.
	Error string `json:"error,omitempty"`
}

// Store is the interface for persisting and retrieving runs. The in-memory
// implementation below is suitable for a single instance; anything backed by
// shared storage would satisfy the same interface for multi-instance
// deployments.
type Store interface {
	Create(profile, versions string) (*Run, error)
	Get(id string) (*Run, error)
	List() ([]*Run, error)
	MarkRunning(id, logPath string) error
	MarkComplete(id string, result *pipeline.Result) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

func (s *MemoryStore) Create(profile, versions string) (*Run, error) {
	r := &Run{
		ID:        NewID(),
		Status:    StatusPending,
		Profile:   profile,
		Versions:  versions,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	s.runs[r.ID] = r
	s.mu.Unlock()

	return r, nil
}

func (s *MemoryStore) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	// Return a copy to prevent callers from mutating internal state.
	copy := *r
	return &copy, nil
}

// List returns copies of all runs, newest first.
func (s *MemoryStore) List() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		copy := *r
		runs = append(runs, &copy)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *MemoryStore) MarkRunning(id, logPath string) error {
	return s.update(id, func(r *Run) {
		r.Status = StatusRunning
		r.LogPath = logPath
	})
}

func (s *MemoryStore) MarkComplete(id string, result *pipeline.Result) error {
	return s.update(id, func(r *Run) {
		r.Status = StatusComplete
		r.Versions = result.Versions
		r.OutputDir = result.OutputDir
		r.Artefacts = result.Artefacts
		r.Uploaded = result.Uploaded
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(r *Run) {
		r.Status = StatusFailed
		r.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	fn(r)
	r.UpdatedAt = time.Now()
	return nil
}
