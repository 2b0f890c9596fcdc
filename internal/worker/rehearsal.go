package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/cutscene-engine/internal/metrics"
	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
	queuePkg "github.com/jwebster45206/cutscene-engine/pkg/queue"
	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

const clipMargin = 2 * time.Second

var ErrOverrun = errors.New("rehearsal did not finish in time")

// Publisher is what the processor reports progress through
type Publisher interface {
	PublishRehearsalStarted(ctx context.Context, sessionID uuid.UUID, requestID string, clips int) error
	PublishClipStarted(ctx context.Context, sessionID uuid.UUID, requestID string, name string, index int, duration float64) error
	PublishCaptionShown(ctx context.Context, sessionID uuid.UUID, requestID string, at float64, text string, hold float64) error
	PublishSoundPlayed(ctx context.Context, sessionID uuid.UUID, requestID string, at float64, name string) error
	PublishRehearsalCompleted(ctx context.Context, sessionID uuid.UUID, requestID string, result map[string]any) error
	PublishRehearsalFailed(ctx context.Context, sessionID uuid.UUID, requestID string, errorMsg string, line int) error
}

// ParserSource builds the parser scripts are compiled with
type ParserSource interface {
	Parser(ctx context.Context) (*script.Parser, error)
}

// History stores finished rehearsal reports
type History interface {
	Append(ctx context.Context, sessionID uuid.UUID, r queue.Report) error
}

// RehearsalProcessor compiles a request and plays it headless on a
// simulated clock, reporting captions and sounds as they would occur
type RehearsalProcessor struct {
	storage storage.Storage
	parsers ParserSource
	events  Publisher
	history History
	logger  *slog.Logger
	tick    time.Duration
	maxTask time.Duration
}

func NewRehearsalProcessor(store storage.Storage, parsers ParserSource, events Publisher, history History, logger *slog.Logger, tick, maxTask time.Duration) *RehearsalProcessor {
	if tick <= 0 {
		tick = time.Second / 30
	}
	if maxTask <= 0 {
		maxTask = playback.DefaultMaxTaskDuration
	}
	return &RehearsalProcessor{
		storage: store,
		parsers: parsers,
		events:  events,
		history: history,
		logger:  logger,
		tick:    tick,
		maxTask: maxTask,
	}
}

// Process runs one request to completion. The returned report is also
// published and appended to the session history.
func (p *RehearsalProcessor) Process(ctx context.Context, req *queuePkg.Request) (queue.Report, error) {
	start := time.Now()
	report := queue.Report{RequestID: req.RequestID, Name: req.Name}

	entries, err := p.compile(ctx, req)
	if err == nil {
		p.publish("rehearsal.started", p.events.PublishRehearsalStarted(ctx, req.SessionID, req.RequestID, len(entries)))
		err = p.rehearse(ctx, req, entries, &report)
	}
	report.FinishedAt = time.Now()

	if err != nil {
		report.Error = err.Error()
		var se *script.ScriptError
		if errors.As(err, &se) {
			report.Line = se.Line
		}
		metrics.ObserveRehearsal(report.Duration, time.Since(start), false)
		p.record(ctx, req, report)
		p.publish("rehearsal.failed", p.events.PublishRehearsalFailed(ctx, req.SessionID, req.RequestID, report.Error, report.Line))
		return report, err
	}

	report.OK = true
	metrics.ObserveRehearsal(report.Duration, time.Since(start), true)
	p.record(ctx, req, report)
	p.publish("rehearsal.completed", p.events.PublishRehearsalCompleted(ctx, req.SessionID, req.RequestID, map[string]any{
		"duration": report.Duration,
		"captions": len(report.Captions),
		"sounds":   len(report.Sounds),
		"song":     report.Song,
		"clips":    len(entries),
	}))
	return report, nil
}

func (p *RehearsalProcessor) compile(ctx context.Context, req *queuePkg.Request) ([]sequencer.Entry, error) {
	parser, err := p.parsers.Parser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}

	switch req.Type {
	case queuePkg.RequestTypeScript:
		lines, err := p.storage.GetScript(ctx, req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load script: %w", err)
		}
		c, err := parser.BuildClip(lines)
		metrics.ObserveCompile("stored", len(lines), err == nil)
		if err != nil {
			return nil, err
		}
		return []sequencer.Entry{{Name: req.Name, Clip: c}}, nil

	case queuePkg.RequestTypeInline:
		c, err := parser.BuildClip(req.Lines)
		metrics.ObserveCompile("inline", len(req.Lines), err == nil)
		if err != nil {
			return nil, err
		}
		return []sequencer.Entry{{Name: "inline", Clip: c}}, nil

	case queuePkg.RequestTypePlaylist:
		pl, err := p.storage.GetPlaylist(ctx, req.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load playlist: %w", err)
		}
		entries, err := sequencer.CompilePlaylist(ctx, pl, parser, p.storage.GetScript)
		metrics.ObserveCompile("playlist", len(pl.Clips), err == nil)
		return entries, err
	}
	return nil, fmt.Errorf("unknown request type: %s", req.Type)
}

// rehearse drives a sequencer over the entries until it finishes or runs
// past the summed clip durations plus a margin per clip
func (p *RehearsalProcessor) rehearse(ctx context.Context, req *queuePkg.Request, entries []sequencer.Entry, report *queue.Report) error {
	origin := time.Unix(0, 0).UTC()
	clock := playback.NewManualClock(origin)
	surface := &rehearsalSurface{rec: playback.NewRecorder(clock)}
	seq := sequencer.New(surface, clock, p.logger, entries, playback.WithMaxTaskDuration(p.maxTask))

	var budget time.Duration
	for _, e := range entries {
		d := e.Clip.Duration()
		report.Duration += d
		budget += time.Duration(d*float64(time.Second)) + clipMargin
	}

	if err := seq.Start(); err != nil {
		return err
	}

	rec := surface.rec
	seenCaptions, seenVoices, clipIndex := 0, 0, -1
	for !seq.Done() {
		if err := ctx.Err(); err != nil {
			seq.Stop()
			return err
		}
		if e, i, ok := seq.Current(); ok && i != clipIndex {
			clipIndex = i
			p.publish("clip.started", p.events.PublishClipStarted(ctx, req.SessionID, req.RequestID, e.Name, i, e.Clip.Duration()))
		}

		clock.Advance(p.tick)
		seq.Tick()

		for _, c := range rec.Captions[seenCaptions:] {
			text := strings.Join(c.Tokens, " ")
			report.Captions = append(report.Captions, text)
			p.publish("caption.shown", p.events.PublishCaptionShown(ctx, req.SessionID, req.RequestID,
				c.At.Sub(origin).Seconds(), text, c.Until.Sub(c.At).Seconds()))
		}
		seenCaptions = len(rec.Captions)

		for _, v := range rec.Voices[seenVoices:] {
			report.Sounds = append(report.Sounds, v.Name)
			p.publish("sound.played", p.events.PublishSoundPlayed(ctx, req.SessionID, req.RequestID,
				v.Starts[0].At.Sub(origin).Seconds(), v.Name))
		}
		seenVoices = len(rec.Voices)

		if clock.Now().Sub(origin) > budget {
			seq.Stop()
			return fmt.Errorf("%w after %s", ErrOverrun, budget)
		}
	}

	if len(surface.songs) > 0 {
		report.Song = surface.songs[0]
	}
	p.logger.Debug("Rehearsal finished",
		"request_id", req.RequestID,
		"simulated", clock.Now().Sub(origin),
		"captions", len(report.Captions),
		"sounds", len(report.Sounds))
	return nil
}

func (p *RehearsalProcessor) record(ctx context.Context, req *queuePkg.Request, r queue.Report) {
	if p.history == nil {
		return
	}
	if err := p.history.Append(ctx, req.SessionID, r); err != nil {
		p.logger.Error("Failed to record rehearsal", "error", err, "request_id", req.RequestID)
	}
}

func (p *RehearsalProcessor) publish(event string, err error) {
	if err != nil {
		p.logger.Error("Failed to publish event", "event", event, "error", err)
	}
}

// rehearsalSurface is a sequencer surface with nothing to open and a
// recording sink
type rehearsalSurface struct {
	rec   *playback.Recorder
	songs []string
}

func (s *rehearsalSurface) PlaySong(name string) error {
	s.songs = append(s.songs, name)
	return nil
}

func (s *rehearsalSurface) Open() error         { return nil }
func (s *rehearsalSurface) Close()              {}
func (s *rehearsalSurface) Sink() playback.Sink { return s.rec }
func (s *rehearsalSurface) StopSong()           {}
