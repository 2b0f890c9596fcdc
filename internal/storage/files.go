package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

const (
	ScriptExt      = ".cut"
	scriptsDir     = "cutscenes"
	playlistsDir   = "playlists"
	soundsDir      = "sounds"
	musicDir       = "music"
	messagesFile   = "messages.json"
	audioFileExt   = ".wav"
	playlistExt    = ".yaml"
	defaultDataDir = "./data"
)

// FileStore reads shipped scripts, messages, playlists and audio from the
// data directory
type FileStore struct {
	dataDir string
	logger  *slog.Logger
}

func NewFileStore(dataDir string, logger *slog.Logger) *FileStore {
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dataDir: dataDir, logger: logger}
}

func (f *FileStore) DataDir() string {
	return f.dataDir
}

// ScriptPath returns the file a named script is read from
func (f *FileStore) ScriptPath(name string) string {
	return filepath.Join(f.dataDir, scriptsDir, name+ScriptExt)
}

// ScriptsDir is the directory holding script files
func (f *FileStore) ScriptsDir() string {
	return filepath.Join(f.dataDir, scriptsDir)
}

// SoundPath returns the audio file for a named sound
func (f *FileStore) SoundPath(name string) string {
	return filepath.Join(f.dataDir, soundsDir, name+audioFileExt)
}

// SongPath returns the audio file for a named song
func (f *FileStore) SongPath(name string) string {
	return filepath.Join(f.dataDir, musicDir, name+audioFileExt)
}

func (f *FileStore) ListScriptFiles(ctx context.Context) ([]string, error) {
	return f.listNames(scriptsDir, ScriptExt)
}

func (f *FileStore) listNames(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.dataDir, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			names = append(names, strings.TrimSuffix(entry.Name(), ext))
		}
	}
	slices.Sort(names)
	return names, nil
}

func (f *FileStore) GetScriptFile(ctx context.Context, name string) ([]string, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.ScriptPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script %s: %w", name, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return SplitLines(string(data)), nil
}

// ScriptLoader loads playlist script references from dirs in order, then
// from the scripts directory
func (f *FileStore) ScriptLoader(dirs ...string) sequencer.LoadFunc {
	return func(ctx context.Context, name string) ([]string, error) {
		if err := storage.ValidateName(name); err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if data, err := os.ReadFile(filepath.Join(dir, name+ScriptExt)); err == nil {
				return SplitLines(string(data)), nil
			}
		}
		return f.GetScriptFile(ctx, name)
	}
}

// SplitLines splits script text into lines, dropping carriage returns
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// GetMessages reads the caption message table. A missing file yields an
// empty table.
func (f *FileStore) GetMessages(ctx context.Context) (script.Messages, error) {
	path := filepath.Join(f.dataDir, messagesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return script.Messages{}, nil
		}
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	var msgs script.Messages
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse messages JSON from %s: %w", path, err)
	}
	return msgs, nil
}

func (f *FileStore) GetPlaylist(ctx context.Context, name string) (*sequencer.Playlist, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(f.dataDir, playlistsDir, name+playlistExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("playlist %s: %w", name, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	p, err := sequencer.ParsePlaylist(data)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// Parser returns a script parser that checks sounds and songs against the
// audio directories and resolves captions from the message table. A missing
// audio directory disables that check.
func (f *FileStore) Parser(ctx context.Context) (*script.Parser, error) {
	msgs, err := f.GetMessages(ctx)
	if err != nil {
		return nil, err
	}
	p := &script.Parser{}
	if len(msgs) > 0 {
		p.Messages = msgs
	}

	if names, ok := f.catalog(soundsDir); ok {
		p.Sounds = names
	}
	if names, ok := f.catalog(musicDir); ok {
		p.Songs = names
	}
	return p, nil
}

func (f *FileStore) catalog(dir string) (script.NameSet, bool) {
	if _, err := os.Stat(filepath.Join(f.dataDir, dir)); err != nil {
		return nil, false
	}
	names, err := f.listNames(dir, audioFileExt)
	if err != nil {
		f.logger.Warn("Failed to list audio directory", "dir", dir, "error", err)
		return nil, false
	}
	return script.NewNameSet(names...), true
}
