package audio

import (
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/jwebster45206/cutscene-engine/pkg/playback"
)

const (
	minPitch = 0.1
	maxPitch = 4.0
)

// source plays a decoded buffer once or on loop. It reports drained when it
// runs out so the mixer drops it; Restart puts it back.
type source struct {
	buf     *beep.Buffer
	pos     int
	loop    bool
	stopped bool
	drained bool
}

func (s *source) Stream(samples [][2]float64) (int, bool) {
	if s.stopped {
		s.drained = true
		return 0, false
	}
	n := 0
	for n < len(samples) {
		if s.pos >= s.buf.Len() {
			if !s.loop || s.buf.Len() == 0 {
				break
			}
			s.pos = 0
		}
		end := min(s.buf.Len(), s.pos+len(samples)-n)
		k, _ := s.buf.Streamer(s.pos, end).Stream(samples[n:])
		if k == 0 {
			break
		}
		s.pos += k
		n += k
	}
	if n == 0 {
		s.drained = true
		return 0, false
	}
	return n, true
}

func (s *source) Err() error { return nil }

// voice chains source -> pitch resampler -> volume -> pan -> ctrl. The
// resampler cannot resume once its source drains, so a restart after that
// builds a fresh chain with the current parameters.
type voice struct {
	engine *Engine
	name   string

	gain    float64
	ratio   float64
	balance float64

	src    *source
	pitch  *beep.Resampler
	volume *effects.Volume
	pan    *effects.Pan
	ctrl   *beep.Ctrl
}

var _ playback.Voice = (*voice)(nil)

func newVoice(e *Engine, name string, buf *beep.Buffer) *voice {
	v := &voice{engine: e, name: name, gain: 1, ratio: 1}
	v.build(&source{buf: buf})
	return v
}

func (v *voice) build(src *source) {
	v.src = src
	v.pitch = beep.ResampleRatio(resampleQuality, v.ratio, src)
	v.volume = &effects.Volume{Streamer: v.pitch, Base: 2}
	v.pan = &effects.Pan{Streamer: v.volume, Pan: v.balance}
	v.ctrl = &beep.Ctrl{Streamer: v.pan}
	v.applyGain()
}

func (v *voice) applyGain() {
	if v.gain <= 0 {
		v.volume.Silent = true
		return
	}
	v.volume.Silent = false
	v.volume.Volume = math.Log2(v.gain)
}

// SetVolume takes a linear gain where 1 is unchanged
func (v *voice) SetVolume(gain float64) {
	speaker.Lock()
	defer speaker.Unlock()
	v.gain = gain
	v.applyGain()
}

// SetPitch takes a playback rate ratio where 1 is unchanged
func (v *voice) SetPitch(ratio float64) {
	speaker.Lock()
	defer speaker.Unlock()
	v.ratio = clamp(ratio, minPitch, maxPitch)
	v.pitch.SetRatio(v.ratio)
}

// SetBalance pans from -1 (left) to 1 (right)
func (v *voice) SetBalance(b float64) {
	speaker.Lock()
	defer speaker.Unlock()
	v.balance = clamp(b, -1, 1)
	v.pan.Pan = v.balance
}

func (v *voice) SetLoop(loop bool) {
	speaker.Lock()
	defer speaker.Unlock()
	v.src.loop = loop
}

func (v *voice) Restart() {
	speaker.Lock()
	defer speaker.Unlock()
	if !v.src.drained {
		v.src.pos = 0
		v.src.stopped = false
		return
	}
	v.build(&source{buf: v.src.buf, loop: v.src.loop})
	v.engine.mixer.Add(v.ctrl)
}

func (v *voice) Stop() {
	speaker.Lock()
	defer speaker.Unlock()
	v.src.stopped = true
	v.src.loop = false
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// newVolume wraps s at a linear gain
func newVolume(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}
