package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	uploaded  map[string][]string
	files     map[string][]string
	messages  script.Messages
	playlists map[string]*sequencer.Playlist
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		uploaded:  make(map[string][]string),
		files:     make(map[string][]string),
		messages:  make(script.Messages),
		playlists: make(map[string]*sequencer.Playlist),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveScript(ctx context.Context, name string, lines []string) error {
	if name == "" {
		return fmt.Errorf("script name required")
	}
	if err := ValidateLines(lines); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded[name] = slices.Clone(lines)
	return nil
}

func (m *MockStorage) LoadScript(ctx context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines, ok := m.uploaded[name]
	if !ok {
		return nil, fmt.Errorf("script %s: %w", name, ErrNotFound)
	}
	return slices.Clone(lines), nil
}

func (m *MockStorage) DeleteScript(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploaded[name]; !ok {
		return fmt.Errorf("script %s: %w", name, ErrNotFound)
	}
	delete(m.uploaded, name)
	return nil
}

func (m *MockStorage) GetScript(ctx context.Context, name string) ([]string, error) {
	if lines, err := m.LoadScript(ctx, name); err == nil {
		return lines, nil
	}
	return m.GetScriptFile(ctx, name)
}

func (m *MockStorage) ListScripts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := slices.Collect(maps.Keys(m.uploaded))
	for name := range m.files {
		if _, ok := m.uploaded[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// AddScriptFile adds a script as if it shipped in the data directory
func (m *MockStorage) AddScriptFile(name string, lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = lines
}

func (m *MockStorage) GetScriptFile(ctx context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("script %s: %w", name, ErrNotFound)
	}
	return slices.Clone(lines), nil
}

// AddMessage adds caption text for a message id
func (m *MockStorage) AddMessage(id int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = text
}

func (m *MockStorage) GetMessages(ctx context.Context) (script.Messages, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.messages), nil
}

func (m *MockStorage) AddPlaylist(name string, p *sequencer.Playlist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists[name] = p
}

func (m *MockStorage) GetPlaylist(ctx context.Context, name string) (*sequencer.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[name]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", name, ErrNotFound)
	}
	return p, nil
}
