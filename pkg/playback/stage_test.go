package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

func stageFor(t *testing.T, layout Layout, ids ...string) (*Stage, *clip.Clip) {
	t.Helper()
	c := clip.NewClip()
	for _, id := range ids {
		_, err := c.AddCustomEntity(id, "img")
		require.NoError(t, err)
	}
	s := NewStage(layout)
	require.NoError(t, s.Prepare(c))
	return s, c
}

func entity(t *testing.T, c *clip.Clip, id string) *clip.Entity {
	t.Helper()
	e, ok := c.Entity(id)
	require.True(t, ok)
	return e
}

func TestStagePositionUsesLayout(t *testing.T) {
	s, c := stageFor(t, Layout{OffsetX: 10, OffsetY: 5, ScaleX: 3.2, ScaleY: 2}, "a")
	a := entity(t, c, "a")

	s.ApplyVisual(a, property.Ranged(property.X, 0, 100), 0.5)
	s.ApplyVisual(a, property.Fixed(property.Y, 25), 1)

	st, ok := s.State("A")
	require.True(t, ok)
	assert.Equal(t, 50.0, st.GridX)
	assert.InDelta(t, 10+50*3.2, st.X, 1e-9)
	assert.Equal(t, 25.0, st.GridY)
	assert.InDelta(t, 55, st.Y, 1e-9)

	s.SetLayout(GridLayout)
	st, _ = s.State("a")
	assert.InDelta(t, 50, st.X, 1e-9)
	assert.InDelta(t, 25, st.Y, 1e-9)
}

func TestStageRotationsAreAbsolutePerAxis(t *testing.T) {
	s, c := stageFor(t, GridLayout, "a")
	a := entity(t, c, "a")

	s.ApplyVisual(a, property.Fixed(property.XRot, 30), 1)
	s.ApplyVisual(a, property.Fixed(property.ZRot, 90), 1)
	s.ApplyVisual(a, property.Fixed(property.XRot, 45), 1)

	st, _ := s.State("a")
	assert.Equal(t, 45.0, st.XRot)
	assert.Equal(t, 0.0, st.YRot)
	assert.Equal(t, 90.0, st.ZRot)
}

func TestStageScaleMultipliesBase(t *testing.T) {
	s, c := stageFor(t, GridLayout, "a")
	a := entity(t, c, "a")

	s.ApplyVisual(a, property.Ranged(property.Scale, 1, 3), 0.5)
	st, _ := s.State("a")
	assert.Equal(t, 2.0, st.Scale)
	assert.Equal(t, 1.0, st.BaseScale)
}

func TestStageTintComposesUnsetChannels(t *testing.T) {
	s, c := stageFor(t, GridLayout, "a")
	a := entity(t, c, "a")

	s.ApplyVisual(a, property.TintOf(property.Color{R: 0.2, G: 0.3, B: 0.4, A: 1}, property.Color{R: 0.2, G: 0.3, B: 0.4, A: 1}), 1)

	half := property.Color{R: property.Unset, G: 0.5, B: property.Unset, A: property.Unset}
	s.ApplyVisual(a, property.TintOf(half, half), 1)

	st, _ := s.State("a")
	assert.Equal(t, property.Color{R: 0.2, G: 0.5, B: 0.4, A: 1}, st.Color)
}

func TestStageZReordersWithinSiblings(t *testing.T) {
	s, c := stageFor(t, GridLayout, "a", "b", "c")

	s.ApplyVisual(entity(t, c, "a"), property.Fixed(property.Z, 2), 1)
	assert.Equal(t, []string{"stage", "stagelight", "b", "c", "a"}, ids(s.Snapshot()))

	s.ApplyVisual(entity(t, c, "c"), property.Fixed(property.Z, -5), 1)
	assert.Equal(t, []string{"stage", "stagelight", "c", "b", "a"}, ids(s.Snapshot()))

	s.ApplyVisual(entity(t, c, "b"), property.Fixed(property.Z, 99), 1)
	assert.Equal(t, []string{"stage", "stagelight", "c", "a", "b"}, ids(s.Snapshot()))

	// the stage itself never moves in the stack
	s.ApplyVisual(c.Stage(), property.Fixed(property.Z, 2), 1)
	snap := s.Snapshot()
	assert.Equal(t, []string{"stage", "stagelight", "c", "a", "b"}, ids(snap))
	for i, st := range snap[2:] {
		assert.Equal(t, i, st.Order)
	}
}

func TestStageIgnoresTime(t *testing.T) {
	s, c := stageFor(t, GridLayout, "a")
	before := s.Snapshot()
	s.ApplyVisual(entity(t, c, "a"), property.Ranged(property.Time, 0, 4), 1)
	assert.Equal(t, before, s.Snapshot())
}

func TestStageWithScheduler(t *testing.T) {
	clock := NewManualClock(epoch)
	rec := NewRecorder(clock)
	stage := NewStage(FitLayout(200, 50))
	sched := NewScheduler(Sinks{Visuals: stage, Audio: rec, Captions: rec}, clock, testLogger())

	c := build(t, "prop bob :img x:10:90 y:50 time:0:4", "change stage tint:black")
	require.NoError(t, sched.Play(c))

	sched.Tick()
	clock.Advance(2 * time.Second)
	sched.Tick()

	bob, ok := stage.State("bob")
	require.True(t, ok)
	assert.InDelta(t, 100, bob.X, 1e-9)
	assert.InDelta(t, 25, bob.Y, 1e-9)

	st, _ := stage.State("stage")
	assert.Equal(t, property.Black, st.Color)
	assert.Same(t, c.Stage(), st.Entity())
}

// tintRun plays lines on a stage ticked every step and returns the color of
// entity a at mid and once the clip has finished
func tintRun(t *testing.T, step, mid time.Duration, lines ...string) (property.Color, property.Color) {
	t.Helper()
	clock := NewManualClock(epoch)
	rec := NewRecorder(clock)
	stage := NewStage(GridLayout)
	sched := NewScheduler(Sinks{Visuals: stage, Audio: rec, Captions: rec}, clock, testLogger())
	require.NoError(t, sched.Play(build(t, lines...)))

	var atMid property.Color
	sched.Tick()
	for elapsed := time.Duration(0); sched.IsPlaying(); {
		clock.Advance(step)
		elapsed += step
		sched.Tick()
		if elapsed == mid {
			st, _ := stage.State("a")
			atMid = st.Color
		}
	}
	st, ok := stage.State("a")
	require.True(t, ok)
	return atMid, st.Color
}

func TestStageTintKeepsUnderlyingColorAtAnyTickRate(t *testing.T) {
	for _, step := range []time.Duration{100 * time.Millisecond, 10 * time.Millisecond} {
		mid, final := tintRun(t, step, 500*time.Millisecond, "prop a :img", "change a tint:g50:r0 time:0:1")
		assert.InDelta(t, 0.5, mid.R, 1e-9, "step %s", step)
		assert.InDelta(t, 0.75, mid.G, 1e-9, "step %s", step)
		assert.InDelta(t, 1.0, mid.B, 1e-9, "step %s", step)
		assert.Equal(t, property.Color{R: 0, G: 1, B: 1, A: 1}, final, "step %s", step)
	}

	_, final := tintRun(t, 100*time.Millisecond, 0, "prop a :img", "change a tint:r0:g0 time:0:1")
	assert.Equal(t, property.Color{R: 1, G: 0, B: 1, A: 1}, final)
}

func TestStageTintAnchorsOnColorAtTaskStart(t *testing.T) {
	mid, final := tintRun(t, 100*time.Millisecond, 1500*time.Millisecond,
		"prop a :img", "change a tint:r20", "change a tint:g0:g100 time:1:2")
	assert.InDelta(t, 0.2, mid.R, 1e-9)
	assert.InDelta(t, 0.5, mid.G, 1e-9)
	assert.Equal(t, property.Color{R: 0.2, G: 1, B: 1, A: 1}, final)
}

func ids(states []EntityState) []string {
	out := make([]string, len(states))
	for i, st := range states {
		out[i] = st.ID
	}
	return out
}
