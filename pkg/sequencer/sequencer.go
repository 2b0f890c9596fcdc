package sequencer

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
)

// Surface is the render surface a sequence plays on
type Surface interface {
	Open() error
	Close()
	Sink() playback.Sink
	PlaySong(name string) error
	StopSong()
}

// Entry is one named clip in a sequence
type Entry struct {
	Name string
	Clip *clip.Clip
}

// Sequencer plays entries one after another on a surface
type Sequencer struct {
	surface Surface
	clock   playback.Clock
	logger  *slog.Logger
	opts    []playback.Option

	entries []Entry
	index   int
	sched   *playback.Scheduler
	started bool
	done    bool
	music   bool
}

func New(surface Surface, clock playback.Clock, logger *slog.Logger, entries []Entry, opts ...playback.Option) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		surface: surface,
		clock:   clock,
		logger:  logger,
		opts:    opts,
		entries: entries,
	}
}

// Start opens the surface and plays the first entry
func (s *Sequencer) Start() error {
	if s.started {
		return fmt.Errorf("sequence already started")
	}
	if err := s.surface.Open(); err != nil {
		return fmt.Errorf("failed to open surface: %w", err)
	}
	s.started = true
	s.sched = playback.NewScheduler(s.surface.Sink(), s.clock, s.logger, s.opts...)
	s.begin(0)
	return nil
}

func (s *Sequencer) begin(i int) {
	s.index = i
	if i >= len(s.entries) {
		s.finish()
		return
	}
	e := s.entries[i]
	s.logger.Info("Playing clip", "clip", e.Name, "index", i, "duration", e.Clip.Duration())

	if e.Clip.HasMusic() {
		if err := s.surface.PlaySong(e.Clip.Song()); err != nil {
			s.logger.Warn("Failed to play song", "song", e.Clip.Song(), "error", err)
		} else {
			s.music = true
		}
	}
	if err := s.sched.Play(e.Clip); err != nil {
		s.logger.Warn("Clip failed to start, moving on", "clip", e.Name, "error", err)
	}
}

func (s *Sequencer) advance() {
	if s.music {
		s.surface.StopSong()
		s.music = false
	}
	s.begin(s.index + 1)
}

func (s *Sequencer) finish() {
	if s.done {
		return
	}
	s.done = true
	s.surface.Close()
	s.logger.Info("Sequence finished", "clips", len(s.entries))
}

// Tick advances the current clip and moves on once it stops playing
func (s *Sequencer) Tick() {
	if !s.started || s.done {
		return
	}
	s.sched.Tick()
	if !s.sched.IsPlaying() {
		s.advance()
	}
}

// Skip abandons the current clip and starts the next one
func (s *Sequencer) Skip() {
	if !s.started || s.done {
		return
	}
	s.logger.Debug("Skipping clip", "clip", s.entries[s.index].Name)
	s.sched.Abandon()
	s.advance()
}

// Stop abandons the rest of the sequence and closes the surface
func (s *Sequencer) Stop() {
	if !s.started || s.done {
		return
	}
	s.sched.Abandon()
	if s.music {
		s.surface.StopSong()
		s.music = false
	}
	s.finish()
}

func (s *Sequencer) Done() bool {
	return s.done
}

// Current returns the entry being played and its index
func (s *Sequencer) Current() (Entry, int, bool) {
	if !s.started || s.done {
		return Entry{}, s.index, false
	}
	return s.entries[s.index], s.index, true
}

// Scheduler returns the scheduler driving the current clip
func (s *Sequencer) Scheduler() *playback.Scheduler {
	return s.sched
}

func (s *Sequencer) Len() int {
	return len(s.entries)
}
