package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLines = errors.New("script line contains a line break")
)

// Storage defines a unified interface for all storage operations.
// Uploaded scripts live in Redis; shipped scripts, messages and playlists
// are read from the data directory.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Uploaded script operations (Redis-backed)
	SaveScript(ctx context.Context, name string, lines []string) error
	LoadScript(ctx context.Context, name string) ([]string, error)
	DeleteScript(ctx context.Context, name string) error

	// GetScript returns an uploaded script, falling back to the script file
	GetScript(ctx context.Context, name string) ([]string, error)
	// ListScripts returns the names of uploaded scripts and script files
	ListScripts(ctx context.Context) ([]string, error)

	// Filesystem-backed resources
	GetScriptFile(ctx context.Context, name string) ([]string, error)
	GetMessages(ctx context.Context) (script.Messages, error)
	GetPlaylist(ctx context.Context, name string) (*sequencer.Playlist, error)
}

// ValidateName rejects script and playlist names that could escape the
// data directory or collide with key separators
func ValidateName(name string) error {
	if name == "" || len(name) > 128 {
		return fmt.Errorf("invalid name %q", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("invalid name %q", name)
		}
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

// ValidateLines rejects lines with embedded line breaks. Scripts are stored
// newline-joined, so such a line would come back as several and shift line
// numbers.
func ValidateLines(lines []string) error {
	for i, line := range lines {
		if strings.ContainsAny(line, "\r\n") {
			return fmt.Errorf("line %d: %w", i+1, ErrInvalidLines)
		}
	}
	return nil
}
