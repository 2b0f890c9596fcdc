package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
)

const (
	resampleQuality = 4
	fallbackFreq    = 440.0
	fallbackLength  = 250 * time.Millisecond
)

var ErrSoundNotLoaded = errors.New("sound not loaded")

// Resolver maps sound and song names to audio files
type Resolver interface {
	SoundPath(name string) string
	SongPath(name string) string
}

// Engine is a playback.Audio backed by a beep mixer. Sounds are decoded
// into memory by Prepare; songs stream from disk.
type Engine struct {
	mu       sync.Mutex
	rate     beep.SampleRate
	mixer    *beep.Mixer
	files    Resolver
	logger   *slog.Logger
	sounds   map[string]*beep.Buffer
	fallback bool

	song       *beep.Ctrl
	songCloser beep.StreamSeekCloser
	open       bool
}

var (
	_ playback.Audio    = (*Engine)(nil)
	_ playback.Preparer = (*Engine)(nil)
)

type Option func(*Engine)

// WithFallbackTone substitutes a short sine tone for sounds with no file
func WithFallbackTone() Option {
	return func(e *Engine) { e.fallback = true }
}

func NewEngine(sampleRate int, files Resolver, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		rate:   beep.SampleRate(sampleRate),
		mixer:  &beep.Mixer{},
		files:  files,
		logger: logger,
		sounds: make(map[string]*beep.Buffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open starts the speaker and plays the mixer through it
func (e *Engine) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.open {
		return nil
	}
	if err := speaker.Init(e.rate, e.rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	speaker.Play(e.mixer)
	e.open = true
	return nil
}

// Close silences every voice and the song
func (e *Engine) Close() {
	e.StopSong()

	speaker.Lock()
	e.mixer.Clear()
	speaker.Unlock()

	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
}

// Streamer exposes the mixer for hosts that drive output themselves
func (e *Engine) Streamer() beep.Streamer {
	return e.mixer
}

// SampleRate returns the rate every voice is resampled to
func (e *Engine) SampleRate() beep.SampleRate {
	return e.rate
}

// Prepare decodes every sound the clip uses. Missing files are logged and
// left for Play to report; undecodable files fail the clip.
func (e *Engine) Prepare(c *clip.Clip) error {
	var errs []error
	for _, s := range c.Sounds() {
		key := strings.ToLower(s.Name)
		e.mu.Lock()
		_, loaded := e.sounds[key]
		e.mu.Unlock()
		if loaded {
			continue
		}

		buf, err := e.load(e.files.SoundPath(s.Name))
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist) && e.fallback:
			buf, err = e.tone()
			if err != nil {
				errs = append(errs, err)
				continue
			}
		case errors.Is(err, os.ErrNotExist):
			e.logger.Warn("Sound file not found", "sound", s.Name)
			continue
		default:
			errs = append(errs, fmt.Errorf("sound %s: %w", s.Name, err))
			continue
		}

		e.mu.Lock()
		e.sounds[key] = buf
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (e *Engine) load(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer s.Close()

	buf := beep.NewBuffer(beep.Format{SampleRate: e.rate, NumChannels: 2, Precision: 2})
	buf.Append(e.resample(format.SampleRate, s))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return buf, nil
}

func (e *Engine) tone() (*beep.Buffer, error) {
	sine, err := generators.SineTone(e.rate, fallbackFreq)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fallback tone: %w", err)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: e.rate, NumChannels: 2, Precision: 2})
	buf.Append(newVolume(beep.Take(e.rate.N(fallbackLength), sine), 0.3))
	return buf, nil
}

func (e *Engine) resample(from beep.SampleRate, s beep.Streamer) beep.Streamer {
	if from == e.rate {
		return s
	}
	return beep.Resample(resampleQuality, from, e.rate, s)
}

// Play starts a prepared sound at unity volume, pitch and centre balance
func (e *Engine) Play(name string) (playback.Voice, error) {
	e.mu.Lock()
	buf, ok := e.sounds[strings.ToLower(name)]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSoundNotLoaded, name)
	}

	v := newVoice(e, name, buf)
	speaker.Lock()
	e.mixer.Add(v.ctrl)
	speaker.Unlock()
	return v, nil
}

// PlaySong streams a song file on loop, replacing any song already playing
func (e *Engine) PlaySong(name string) error {
	e.StopSong()

	f, err := os.Open(e.files.SongPath(name))
	if err != nil {
		return fmt.Errorf("song %s: %w", name, err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to decode song %s: %w", name, err)
	}

	ctrl := &beep.Ctrl{Streamer: e.resample(format.SampleRate, beep.Loop(-1, s))}

	e.mu.Lock()
	e.song, e.songCloser = ctrl, s
	e.mu.Unlock()

	speaker.Lock()
	e.mixer.Add(ctrl)
	speaker.Unlock()
	e.logger.Debug("Song started", "song", name)
	return nil
}

func (e *Engine) StopSong() {
	e.mu.Lock()
	ctrl, closer := e.song, e.songCloser
	e.song, e.songCloser = nil, nil
	e.mu.Unlock()

	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Streamer = nil
	speaker.Unlock()
	if err := closer.Close(); err != nil {
		e.logger.Warn("Failed to close song", "error", err)
	}
}
