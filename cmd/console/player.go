package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/cutscene-engine/internal/services/audio"
	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
)

const recentSounds = 6

// captionBoard holds the caption on screen and when it expires
type captionBoard struct {
	mu     sync.Mutex
	clock  playback.Clock
	tokens []string
	until  time.Time
	tint   *property.Color
}

func (b *captionBoard) ShowCaption(tokens []string, until time.Time, tint *property.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = tokens
	b.until = until
	b.tint = tint
}

// Current returns the caption text if it has not expired
func (b *captionBoard) Current() (string, *property.Color, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tokens) == 0 || !b.clock.Now().Before(b.until) {
		return "", nil, false
	}
	return strings.Join(b.tokens, " "), b.tint, true
}

func (b *captionBoard) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = nil
}

// consoleSurface plays clips on the terminal stage and the speaker. With no
// engine, sounds go to a recorder and nothing is heard.
type consoleSurface struct {
	stage    *playback.Stage
	captions *captionBoard
	engine   *audio.Engine
	silent   *playback.Recorder

	mu     sync.Mutex
	sounds []string
	song   string
}

var (
	_ sequencer.Surface = (*consoleSurface)(nil)
	_ playback.Audio    = (*consoleSurface)(nil)
)

func (s *consoleSurface) Open() error {
	if s.engine != nil {
		return s.engine.Open()
	}
	return nil
}

func (s *consoleSurface) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
}

func (s *consoleSurface) Sink() playback.Sink {
	return playback.Sinks{Visuals: s.stage, Audio: s, Captions: s.captions}
}

// Prepare loads the clip's sounds when audio is enabled
func (s *consoleSurface) Prepare(c *clip.Clip) error {
	if s.engine != nil {
		return s.engine.Prepare(c)
	}
	return nil
}

func (s *consoleSurface) Play(name string) (playback.Voice, error) {
	s.mu.Lock()
	s.sounds = append(s.sounds, name)
	if len(s.sounds) > recentSounds {
		s.sounds = s.sounds[len(s.sounds)-recentSounds:]
	}
	s.mu.Unlock()

	if s.engine != nil {
		return s.engine.Play(name)
	}
	return s.silent.Play(name)
}

func (s *consoleSurface) PlaySong(name string) error {
	s.mu.Lock()
	s.song = name
	s.mu.Unlock()
	if s.engine != nil {
		return s.engine.PlaySong(name)
	}
	return nil
}

func (s *consoleSurface) StopSong() {
	s.mu.Lock()
	s.song = ""
	s.mu.Unlock()
	if s.engine != nil {
		s.engine.StopSong()
	}
}

func (s *consoleSurface) recent() ([]string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sounds...), s.song
}

// Player compiles a script or playlist file and plays it on a console
// surface
type Player struct {
	files  *storage.FileStore
	source string
	logger *slog.Logger
	opts   []playback.Option

	clock    *playback.PausableClock
	stage    *playback.Stage
	captions *captionBoard
	surface  *consoleSurface

	entries []sequencer.Entry
	seq     *sequencer.Sequencer
}

func NewPlayer(files *storage.FileStore, source string, engine *audio.Engine, logger *slog.Logger, opts ...playback.Option) *Player {
	return newPlayer(files, source, engine, logger, playback.SystemClock{}, opts...)
}

func newPlayer(files *storage.FileStore, source string, engine *audio.Engine, logger *slog.Logger, base playback.Clock, opts ...playback.Option) *Player {
	clock := playback.NewPausableClock(base)
	stage := playback.NewStage(playback.GridLayout)
	captions := &captionBoard{clock: clock}
	return &Player{
		files:    files,
		source:   source,
		logger:   logger,
		opts:     opts,
		clock:    clock,
		stage:    stage,
		captions: captions,
		surface: &consoleSurface{
			stage:    stage,
			captions: captions,
			engine:   engine,
			silent:   playback.NewRecorder(clock),
		},
	}
}

// Source is the file being played
func (p *Player) Source() string {
	return p.source
}

// Load compiles the source. The current sequence keeps playing if it fails.
func (p *Player) Load(ctx context.Context) error {
	entries, err := loadEntries(ctx, p.files, p.source)
	if err != nil {
		return err
	}
	p.entries = entries
	return nil
}

// Start plays the loaded entries from the top
func (p *Player) Start() error {
	if len(p.entries) == 0 {
		return fmt.Errorf("nothing loaded")
	}
	if p.seq != nil {
		p.seq.Stop()
	}
	p.captions.clear()
	p.clock.Resume()
	p.seq = sequencer.New(p.surface, p.clock, p.logger, p.entries, p.opts...)
	return p.seq.Start()
}

func (p *Player) Tick() {
	if p.seq != nil && !p.clock.Paused() {
		p.seq.Tick()
	}
}

func (p *Player) Skip() {
	if p.seq != nil {
		p.seq.Skip()
	}
}

func (p *Player) Stop() {
	if p.seq != nil {
		p.seq.Stop()
	}
}

// TogglePause freezes or resumes the playback clock and reports whether
// playback is now paused
func (p *Player) TogglePause() bool {
	if p.clock.Paused() {
		p.clock.Resume()
		return false
	}
	p.clock.Pause()
	return true
}

func (p *Player) Done() bool {
	return p.seq == nil || p.seq.Done()
}

// Status describes the clip being played
type Status struct {
	Clip     string
	Index    int
	Total    int
	Elapsed  float64
	Duration float64
	Paused   bool
	Done     bool
}

// Fraction is how far through the current clip playback is
func (s Status) Fraction() float64 {
	if s.Duration <= 0 {
		return 1
	}
	return min(s.Elapsed/s.Duration, 1)
}

func (p *Player) Status() Status {
	st := Status{Total: len(p.entries), Paused: p.clock.Paused(), Done: p.Done()}
	if p.seq == nil {
		return st
	}
	e, i, ok := p.seq.Current()
	if !ok {
		st.Index = st.Total
		return st
	}
	st.Clip = e.Name
	st.Index = i
	st.Duration = e.Clip.Duration()
	if sched := p.seq.Scheduler(); sched != nil {
		st.Elapsed = sched.Elapsed().Seconds()
	}
	return st
}

// Summary lists every loaded clip, one per line
func (p *Player) Summary() string {
	var b strings.Builder
	for _, e := range p.entries {
		s := e.Clip.Summarize()
		fmt.Fprintf(&b, "%s: %.2fs, entities %s, sounds %s, %d captions",
			e.Name, s.Duration, strings.Join(s.Entities, ","), strings.Join(s.Sounds, ","), s.Captions)
		if s.Song != "" {
			fmt.Fprintf(&b, ", music %s", s.Song)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// loadEntries compiles a .cut script, a playlist, or a script name in the
// data directory
func loadEntries(ctx context.Context, files *storage.FileStore, source string) ([]sequencer.Entry, error) {
	parser, err := files.Parser(ctx)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(source)
	name := strings.TrimSuffix(filepath.Base(source), ext)
	switch ext {
	case storage.ScriptExt:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		c, err := parser.BuildClip(storage.SplitLines(string(data)))
		if err != nil {
			return nil, err
		}
		return []sequencer.Entry{{Name: name, Clip: c}}, nil

	case ".yaml", ".yml":
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read playlist: %w", err)
		}
		pl, err := sequencer.ParsePlaylist(data)
		if err != nil {
			return nil, err
		}
		return sequencer.CompilePlaylist(ctx, pl, parser, files.ScriptLoader(filepath.Dir(source)))

	default:
		lines, err := files.GetScriptFile(ctx, source)
		if err != nil {
			return nil, err
		}
		c, err := parser.BuildClip(lines)
		if err != nil {
			return nil, err
		}
		return []sequencer.Entry{{Name: source, Clip: c}}, nil
	}
}

// watchPath is the file edits to source land in
func watchPath(files *storage.FileStore, source string) string {
	switch filepath.Ext(source) {
	case storage.ScriptExt, ".yaml", ".yml":
		return source
	default:
		return files.ScriptPath(source)
	}
}
