package sequencer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/pkg/playback"
	"github.com/jwebster45206/cutscene-engine/pkg/script"
)

type fakeSurface struct {
	rec     *playback.Recorder
	opened  int
	closed  int
	songs   []string
	stops   int
	openErr error
	songErr error
}

func (f *fakeSurface) Open() error {
	f.opened++
	return f.openErr
}
func (f *fakeSurface) Close()              { f.closed++ }
func (f *fakeSurface) Sink() playback.Sink { return f.rec }
func (f *fakeSurface) PlaySong(name string) error {
	if f.songErr != nil {
		return f.songErr
	}
	f.songs = append(f.songs, name)
	return nil
}
func (f *fakeSurface) StopSong() { f.stops++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func entries(t *testing.T, scripts ...[]string) []Entry {
	t.Helper()
	var out []Entry
	for i, lines := range scripts {
		c, err := script.BuildClip(lines)
		require.NoError(t, err)
		out = append(out, Entry{Name: string(rune('a' + i)), Clip: c})
	}
	return out
}

func setup(t *testing.T, scripts ...[]string) (*Sequencer, *fakeSurface, *playback.ManualClock) {
	t.Helper()
	clock := playback.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	surface := &fakeSurface{rec: playback.NewRecorder(clock)}
	return New(surface, clock, testLogger(), entries(t, scripts...)), surface, clock
}

func TestSequencerPlaysInOrder(t *testing.T) {
	seq, surface, clock := setup(t,
		[]string{"music intro", "prop a :img x:0:1 time:0:2"},
		[]string{"prop b :img x:0:1 time:0:1"},
	)

	require.NoError(t, seq.Start())
	assert.Equal(t, 1, surface.opened)
	assert.Equal(t, []string{"intro"}, surface.songs)

	cur, idx, ok := seq.Current()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "a", cur.Name)

	seq.Tick()
	clock.Advance(2 * time.Second)
	seq.Tick()

	_, idx, _ = seq.Current()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, surface.stops)

	seq.Tick()
	clock.Advance(time.Second)
	seq.Tick()

	assert.True(t, seq.Done())
	assert.Equal(t, 1, surface.closed)
	_, _, ok = seq.Current()
	assert.False(t, ok)

	// further ticks are ignored
	seq.Tick()
	assert.Equal(t, 1, surface.closed)
}

func TestSequencerSkip(t *testing.T) {
	seq, surface, _ := setup(t,
		[]string{"sound wind time:0:60"},
		[]string{"prop b :img x:0:1 time:0:1"},
	)
	require.NoError(t, seq.Start())
	seq.Tick()
	require.Len(t, surface.rec.Voices, 1)

	seq.Skip()
	assert.True(t, surface.rec.Voices[0].Stopped)
	_, idx, _ := seq.Current()
	assert.Equal(t, 1, idx)

	seq.Skip()
	assert.True(t, seq.Done())
	assert.Equal(t, 1, surface.closed)
}

func TestSequencerStop(t *testing.T) {
	seq, surface, _ := setup(t,
		[]string{"music theme", "prop a :img x:0:1 time:0:5"},
		[]string{"prop b :img x:0:1 time:0:1"},
	)
	require.NoError(t, seq.Start())
	seq.Stop()
	assert.True(t, seq.Done())
	assert.Equal(t, 1, surface.stops)
	assert.Equal(t, 1, surface.closed)
}

func TestSequencerOpenFailure(t *testing.T) {
	seq, surface, _ := setup(t, []string{"prop a :img"})
	surface.openErr = errors.New("no display")

	err := seq.Start()
	require.Error(t, err)
	assert.False(t, seq.Done())
	seq.Tick()
}

func TestSequencerSongFailureStillPlays(t *testing.T) {
	seq, surface, _ := setup(t, []string{"music theme", "prop a :img x:0:1 time:0:5"})
	surface.songErr = errors.New("codec")

	require.NoError(t, seq.Start())
	assert.True(t, seq.Scheduler().IsPlaying())
	seq.Skip()
	assert.Zero(t, surface.stops)
}

func TestSequencerEmpty(t *testing.T) {
	seq, surface, _ := setup(t)
	require.NoError(t, seq.Start())
	assert.True(t, seq.Done())
	assert.Equal(t, 1, surface.closed)
	assert.Error(t, seq.Start())
}

func TestSequencerPrepareFailureMovesOn(t *testing.T) {
	seq, surface, _ := setup(t,
		[]string{"prop a :img x:0:1 time:0:5"},
	)
	surface.rec.PrepareErr = errors.New("missing archive")

	require.NoError(t, seq.Start())
	seq.Tick()
	assert.True(t, seq.Done())
}

func TestParsePlaylist(t *testing.T) {
	data := []byte(`
name: chapter-one
clips:
  - name: arrival
    script: arrival
  - name: farewell
    inline: |
      prop a :img time:0:3
      caption 7 time:0:3
`)
	p, err := ParsePlaylist(data)
	require.NoError(t, err)
	assert.Equal(t, "chapter-one", p.Name)
	require.Len(t, p.Clips, 2)
	assert.Equal(t, "arrival", p.Clips[0].Script)

	out, err := p.Marshal()
	require.NoError(t, err)
	again, err := ParsePlaylist(out)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestParsePlaylistInvalid(t *testing.T) {
	tests := map[string]string{
		"no clips":     "name: empty\nclips: []\n",
		"both sources": "name: x\nclips:\n  - script: a\n    inline: prop a :b\n",
		"no source":    "name: x\nclips:\n  - name: a\n",
		"bad yaml":     "name: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlaylist([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestCompilePlaylistKeepsOrder(t *testing.T) {
	p := &Playlist{Name: "p", Clips: []PlaylistClip{
		{Script: "one"},
		{Name: "two", Inline: "prop b :img time:0:2"},
		{Script: "three"},
	}}
	stored := map[string][]string{
		"one":   {"prop a :img time:0:1"},
		"three": {"sound bell time:0:3"},
	}
	load := func(_ context.Context, name string) ([]string, error) {
		lines, ok := stored[name]
		if !ok {
			return nil, errors.New("not found")
		}
		return lines, nil
	}

	got, err := CompilePlaylist(context.Background(), p, nil, load)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Name)
	assert.Equal(t, 1.0, got[0].Clip.Duration())
	assert.Equal(t, "two", got[1].Name)
	assert.Equal(t, 2.0, got[1].Clip.Duration())
	assert.Equal(t, 3.0, got[2].Clip.Duration())
}

func TestCompilePlaylistFailure(t *testing.T) {
	p := &Playlist{Name: "p", Clips: []PlaylistClip{
		{Name: "ok", Inline: "prop a :img"},
		{Name: "bad", Inline: "prop a :img\nfoo"},
	}}
	_, err := CompilePlaylist(context.Background(), p, &script.Parser{}, nil)
	require.Error(t, err)

	var se *script.ScriptError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Contains(t, err.Error(), `clip "bad"`)
}
