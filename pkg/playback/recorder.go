package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

// VisualCall is one recorded ApplyVisual
type VisualCall struct {
	At     time.Time
	Entity string
	Prop   property.Property
	Lerp   float64
}

// CaptionCall is one recorded ShowCaption
type CaptionCall struct {
	At     time.Time
	Tokens []string
	Until  time.Time
	Tint   *property.Color
}

// VoiceEvent is one recorded voice start or restart with the parameters in
// effect at that moment
type VoiceEvent struct {
	At      time.Time
	Sound   string
	Volume  float64
	Pitch   float64
	Balance float64
}

// RecordedVoice is a Voice that remembers what was done to it
type RecordedVoice struct {
	rec *Recorder

	Name    string
	Volume  float64
	Pitch   float64
	Balance float64
	Loop    bool
	Stopped bool
	Starts  []VoiceEvent
}

// Recorder is an in-memory Sink that logs every call against a clock
type Recorder struct {
	mu    sync.Mutex
	clock Clock

	Visuals  []VisualCall
	Captions []CaptionCall
	Voices   []*RecordedVoice

	// Missing makes Play fail for the listed sounds
	Missing map[string]bool
	// PrepareErr is returned from Prepare when set
	PrepareErr error
}

var (
	_ Sink     = (*Recorder)(nil)
	_ Preparer = (*Recorder)(nil)
	_ Voice    = (*RecordedVoice)(nil)
)

func NewRecorder(clock Clock) *Recorder {
	return &Recorder{clock: clock, Missing: make(map[string]bool)}
}

func (r *Recorder) Prepare(_ *clip.Clip) error {
	return r.PrepareErr
}

func (r *Recorder) ApplyVisual(e *clip.Entity, p property.Property, lerp float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Visuals = append(r.Visuals, VisualCall{At: r.clock.Now(), Entity: e.ID, Prop: p, Lerp: lerp})
}

func (r *Recorder) Play(name string) (Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Missing[name] {
		return nil, fmt.Errorf("sound %s not found", name)
	}
	v := &RecordedVoice{rec: r, Name: name, Volume: 1, Pitch: 1}
	v.Starts = append(v.Starts, v.event())
	r.Voices = append(r.Voices, v)
	return v, nil
}

func (r *Recorder) ShowCaption(tokens []string, until time.Time, tint *property.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Captions = append(r.Captions, CaptionCall{At: r.clock.Now(), Tokens: tokens, Until: until, Tint: tint})
}

// VisualsFor returns the recorded calls for one entity and property type
func (r *Recorder) VisualsFor(entity string, t property.Type) []VisualCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []VisualCall
	for _, c := range r.Visuals {
		if c.Entity == entity && c.Prop.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func (v *RecordedVoice) SetVolume(x float64)  { v.Volume = x; v.touch() }
func (v *RecordedVoice) SetPitch(x float64)   { v.Pitch = x; v.touch() }
func (v *RecordedVoice) SetBalance(x float64) { v.Balance = x; v.touch() }
func (v *RecordedVoice) SetLoop(loop bool)    { v.Loop = loop }
func (v *RecordedVoice) Stop()                { v.Stopped = true }

// Restart records a new start with the current parameters
func (v *RecordedVoice) Restart() {
	v.Starts = append(v.Starts, v.event())
}

// touch folds parameters set at the instant of a start into that start
func (v *RecordedVoice) touch() {
	if n := len(v.Starts); n > 0 && v.Starts[n-1].At.Equal(v.rec.clock.Now()) {
		v.Starts[n-1] = v.event()
	}
}

func (v *RecordedVoice) event() VoiceEvent {
	return VoiceEvent{
		At:      v.rec.clock.Now(),
		Sound:   v.Name,
		Volume:  v.Volume,
		Pitch:   v.Pitch,
		Balance: v.Balance,
	}
}
