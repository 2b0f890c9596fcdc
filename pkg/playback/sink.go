package playback

import (
	"errors"
	"time"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

// Visuals applies entity properties at an interpolation factor
type Visuals interface {
	ApplyVisual(e *clip.Entity, p property.Property, lerp float64)
}

// Voice controls one playing sound
type Voice interface {
	SetVolume(v float64)
	SetPitch(p float64)
	SetBalance(b float64)
	SetLoop(loop bool)
	Restart()
	Stop()
}

// Audio starts sounds by name
type Audio interface {
	Play(name string) (Voice, error)
}

// Captions shows caption tokens until a deadline. A nil tint means the
// host's default caption color.
type Captions interface {
	ShowCaption(tokens []string, until time.Time, tint *property.Color)
}

// Preparer is implemented by sinks that look up resources before playback
type Preparer interface {
	Prepare(c *clip.Clip) error
}

// Sink is everything the scheduler drives
type Sink interface {
	Visuals
	Audio
	Captions
}

// Sinks combines separate visual, audio and caption hosts into a Sink.
// Prepare is forwarded to every part that implements Preparer.
type Sinks struct {
	Visuals
	Audio
	Captions
}

var _ Sink = Sinks{}
var _ Preparer = Sinks{}
var _ ColorReader = Sinks{}

func (s Sinks) Prepare(c *clip.Clip) error {
	var errs []error
	for _, part := range []any{s.Visuals, s.Audio, s.Captions} {
		if p, ok := part.(Preparer); ok {
			if err := p.Prepare(c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ColorReader is implemented by visual sinks that track entity colors. A
// tint task reads the color once when it starts and composes its endpoints
// over it.
type ColorReader interface {
	ColorOf(e *clip.Entity) (property.Color, bool)
}

// ColorOf forwards to Visuals when it tracks colors
func (s Sinks) ColorOf(e *clip.Entity) (property.Color, bool) {
	if r, ok := s.Visuals.(ColorReader); ok {
		return r.ColorOf(e)
	}
	return property.Color{}, false
}

// Clock is the monotonic time source playback runs against
type Clock interface {
	Now() time.Time
}
