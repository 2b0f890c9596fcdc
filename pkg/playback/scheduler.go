package playback

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
)

// DefaultMaxTaskDuration bounds how long a running task may overrun its end
const DefaultMaxTaskDuration = 10 * time.Minute

// Scheduler plays a clip against a sink. It is driven by Tick and is not
// safe for concurrent use.
type Scheduler struct {
	sink    Sink
	clock   Clock
	logger  *slog.Logger
	maxTask time.Duration

	clip     *clip.Clip
	started  time.Time
	tasks    []*task
	inFlight int
}

type Option func(*Scheduler)

// WithMaxTaskDuration sets how long a running task may overrun its end
// before it is stopped
func WithMaxTaskDuration(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.maxTask = d
		}
	}
}

func NewScheduler(sink Sink, clock Clock, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sink:    sink,
		clock:   clock,
		logger:  logger,
		maxTask: DefaultMaxTaskDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play starts c. Instant entity sets apply at once; every other set becomes
// a task advanced by Tick. If the sink fails to prepare, the error is logged,
// nothing is left playing and the error is returned.
func (s *Scheduler) Play(c *clip.Clip) (err error) {
	s.Abandon()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clip setup panicked: %v", r)
		}
		if err != nil {
			s.logger.Error("Failed to start clip", "error", err)
			s.inFlight = 0
			s.tasks = nil
		}
	}()

	if p, ok := s.sink.(Preparer); ok {
		if err := p.Prepare(c); err != nil {
			return fmt.Errorf("failed to prepare clip: %w", err)
		}
	}

	s.clip = c
	s.started = s.clock.Now()

	for _, e := range c.AllEntities() {
		for _, set := range e.Animations {
			if set.IsInstant() {
				applyVisuals(s.sink, e, set, 1)
				continue
			}
			t := newTask(entityTask, set)
			t.entity = e
			s.schedule(t)
		}
	}
	for _, snd := range c.Sounds() {
		t := newTask(soundTask, snd.Set)
		t.sound = snd.Name
		s.schedule(t)
	}
	for _, cp := range c.Captions() {
		t := newTask(captionTask, cp.Set)
		t.caption = cp
		s.schedule(t)
	}

	s.logger.Debug("Clip started", "tasks", len(s.tasks), "duration", c.Duration())
	return nil
}

func (s *Scheduler) schedule(t *task) {
	if !finite(t.start) || !finite(t.end) || !finite(t.cycles) {
		s.logger.Warn("Skipping task with unbounded time range",
			"kind", t.kind.String(), "name", t.name(), "start", t.start, "end", t.end)
		return
	}
	s.tasks = append(s.tasks, t)
	s.inFlight++
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Tick reads the clock once and advances every task
func (s *Scheduler) Tick() {
	if len(s.tasks) == 0 {
		return
	}
	now := s.clock.Now()
	elapsed := now.Sub(s.started).Seconds()

	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if s.advance(t, now, elapsed) {
			t.phase = finished
			s.inFlight--
			continue
		}
		kept = append(kept, t)
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept
}

// advance steps one task. A panic or error finishes the task.
func (s *Scheduler) advance(t *task, now time.Time, elapsed float64) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Task panicked", "kind", t.kind.String(), "name", t.name(), "panic", r)
			done = true
		}
	}()

	if t.phase == running && elapsed-t.end > s.maxTask.Seconds() {
		s.logger.Warn("Task overran its end", "kind", t.kind.String(), "name", t.name(), "end", t.end)
		if t.voice != nil {
			t.voice.Stop()
		}
		return true
	}

	switch t.kind {
	case entityTask:
		return t.stepEntity(s.sink, elapsed)
	case soundTask:
		over, err := t.stepSound(s.sink, elapsed)
		if err != nil {
			s.logger.Warn("Failed to play sound", "sound", t.sound, "error", err)
		}
		return over
	case captionTask:
		return t.stepCaption(s.sink, s.clip.Duration(), now, elapsed)
	}
	return true
}

// IsPlaying reports whether any task is still in flight
func (s *Scheduler) IsPlaying() bool {
	return s.inFlight > 0
}

// Abandon stops every voice and drops all tasks
func (s *Scheduler) Abandon() {
	for _, t := range s.tasks {
		if t.voice != nil {
			t.voice.Stop()
		}
	}
	s.tasks = nil
	s.inFlight = 0
}

// Elapsed returns the time since the current clip started
func (s *Scheduler) Elapsed() time.Duration {
	if s.clip == nil {
		return 0
	}
	return s.clock.Now().Sub(s.started)
}

// Clip returns the clip being played, nil before the first Play
func (s *Scheduler) Clip() *clip.Clip {
	return s.clip
}

// Pending returns the number of tasks in flight
func (s *Scheduler) Pending() int {
	return s.inFlight
}
