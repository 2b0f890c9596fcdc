package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

type taskKind int

const (
	entityTask taskKind = iota
	soundTask
	captionTask
)

func (k taskKind) String() string {
	switch k {
	case entityTask:
		return "entity"
	case soundTask:
		return "sound"
	case captionTask:
		return "caption"
	}
	return "unknown"
}

type phase int

const (
	waiting phase = iota
	running
	finished
)

// task is one scheduled set advanced by the scheduler tick
type task struct {
	kind   taskKind
	phase  phase
	start  float64
	end    float64
	cycles float64
	set    property.Set

	entity *clip.Entity

	sound   string
	voice   Voice
	reps    int
	nextRep int

	caption clip.Caption
}

func newTask(kind taskKind, set property.Set) *task {
	start, end := set.TimeRange()
	return &task{kind: kind, start: start, end: end, cycles: set.Cycles(), set: set}
}

func (t *task) name() string {
	switch t.kind {
	case entityTask:
		return t.entity.ID
	case soundTask:
		return t.sound
	}
	return fmt.Sprintf("caption %d", t.caption.MessageID)
}

func (t *task) duration() float64 {
	return t.end - t.start
}

// remap turns linear progress into the oscillation requested by cycles
func remap(l, cycles float64) float64 {
	if cycles > 0 {
		return math.Abs(math.Sin(l * cycles * math.Pi))
	}
	return l
}

// step advances the entity task to elapsed and reports completion
func (t *task) stepEntity(v Visuals, elapsed float64) bool {
	if elapsed < t.start {
		return false
	}
	if t.phase == waiting {
		t.phase = running
		t.set = anchorTint(v, t.entity, t.set)
	}
	l := 1.0
	done := elapsed >= t.end
	if !done {
		l = (elapsed - t.start) / t.duration()
	}
	applyVisuals(v, t.entity, t.set, remap(l, t.cycles))
	return done
}

// anchorTint composes both tint endpoints over the entity's color at the
// moment the task starts. Later ticks interpolate between fixed colors, so
// unset channels keep that color whatever the tick rate.
func anchorTint(v Visuals, e *clip.Entity, set property.Set) property.Set {
	r, ok := v.(ColorReader)
	if !ok || !set.Has(property.Tint) {
		return set
	}
	base, ok := r.ColorOf(e)
	if !ok {
		return set
	}
	props := set.Properties()
	for i, p := range props {
		if p.Type == property.Tint {
			props[i].StartColor = property.Compose(base, p.StartColor)
			props[i].EndColor = property.Compose(base, p.EndColor)
		}
	}
	anchored, err := property.NewSet(props...)
	if err != nil {
		return set
	}
	return anchored
}

func applyVisuals(v Visuals, e *clip.Entity, set property.Set, l float64) {
	for _, p := range set.Properties() {
		if p.Type == property.Time {
			continue
		}
		v.ApplyVisual(e, p, l)
	}
}

func (t *task) applyAudio(l float64) {
	if t.set.Has(property.Volume) {
		t.voice.SetVolume(t.set.Get(property.Volume).Value(l))
	}
	if t.set.Has(property.Pitch) {
		t.voice.SetPitch(t.set.Get(property.Pitch).Value(l))
	}
	if t.set.Has(property.Balance) {
		t.voice.SetBalance(t.set.Get(property.Balance).Value(l))
	}
}

// stepSound starts the voice after the start delay, then repeats it per
// cycle, loops it over the range, or leaves a one-shot playing
func (t *task) stepSound(a Audio, elapsed float64) (bool, error) {
	if elapsed < t.start {
		return false, nil
	}
	d := t.duration()

	if t.phase == waiting {
		t.phase = running
		voice, err := a.Play(t.sound)
		if err != nil {
			return true, err
		}
		t.voice = voice
		switch {
		case t.cycles > 0 && d > 0:
			t.reps = int(math.Ceil(t.cycles))
			t.nextRep = 1
			t.applyAudio(0)
		case d > 0:
			t.voice.SetLoop(true)
			t.applyAudio(0)
		default:
			t.applyAudio(0)
			return true, nil
		}
	}

	if t.cycles > 0 {
		interval := d / t.cycles
		for t.nextRep < t.reps {
			at := float64(t.nextRep) * interval
			if elapsed < t.start+at {
				break
			}
			t.applyAudio(at / d)
			t.voice.Restart()
			t.nextRep++
		}
	} else if elapsed < t.end {
		t.applyAudio((elapsed - t.start) / d)
	}

	if elapsed >= t.end {
		t.voice.Stop()
		return true, nil
	}
	return false, nil
}

// stepCaption shows the caption once its start delay has passed
func (t *task) stepCaption(c Captions, clipDuration float64, now time.Time, elapsed float64) bool {
	if elapsed < t.start {
		return false
	}
	d := t.duration()
	if t.set.IsInstant() {
		d = clipDuration - t.start
	}
	d = max(d, 0)

	var tint *property.Color
	if t.set.Has(property.Tint) {
		col := property.Compose(property.White, t.set.Get(property.Tint).StartColor)
		tint = &col
	}
	c.ShowCaption(t.caption.Tokens, now.Add(seconds(d)), tint)
	return true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
