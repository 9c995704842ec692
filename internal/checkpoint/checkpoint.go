// Package checkpoint persists the resumable crawl state between runs.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jonesrussell/listing-crawler/internal/atomicfile"
	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// ErrNotFound is returned by Load when no checkpoint exists.
var ErrNotFound = errors.New("checkpoint not found")

// Store saves and restores crawl state.
type Store interface {
	Load(ctx context.Context) (*domain.CrawlState, error)
	Save(ctx context.Context, state *domain.CrawlState) error
	Clear(ctx context.Context) error
}

// FileStore keeps the state as a JSON document on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (*domain.CrawlState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	return decode(data)
}

// Save implements Store with an atomic replace.
func (s *FileStore) Save(_ context.Context, state *domain.CrawlState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := atomicfile.WriteBytes(s.path, data); err != nil {
		return fmt.Errorf("%w: write checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Clear implements Store. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}

func decode(data []byte) (*domain.CrawlState, error) {
	var state domain.CrawlState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if state.CurrentPageIndex < domain.FirstPage {
		state.CurrentPageIndex = domain.FirstPage
	}
	if state.ItemOffsetWithinPage < 0 {
		state.ItemOffsetWithinPage = 0
	}
	if state.CompletedPhases == nil {
		state.CompletedPhases = []domain.Phase{}
	}
	return &state, nil
}
