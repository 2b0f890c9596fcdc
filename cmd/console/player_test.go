package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCaptionBoardExpires(t *testing.T) {
	clock := playback.NewManualClock(time.Unix(0, 0))
	b := &captionBoard{clock: clock}

	_, _, ok := b.Current()
	assert.False(t, ok)

	red := property.Color{R: 1, G: 0, B: 0, A: 1}
	b.ShowCaption([]string{"Look", "out"}, clock.Now().Add(2*time.Second), &red)
	text, tint, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Look out", text)
	assert.Equal(t, &red, tint)

	clock.Advance(2 * time.Second)
	_, _, ok = b.Current()
	assert.False(t, ok)
}

func TestLoadEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "messages.json"), `{"1":"Hello there"}`)
	writeFile(t, filepath.Join(dir, "cutscenes", "stored.cut"), "prop a :img time:0:4\n")
	local := filepath.Join(dir, "work", "intro.cut")
	writeFile(t, local, "prop bob :img time:0:2\ncaption 1 time:0:2\n")
	playlist := filepath.Join(dir, "work", "show.yaml")
	writeFile(t, playlist, "name: show\nclips:\n  - script: intro\n  - script: stored\n")

	files := storage.NewFileStore(dir, testLogger())
	ctx := context.Background()

	entries, err := loadEntries(ctx, files, local)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "intro", entries[0].Name)

	entries, err = loadEntries(ctx, files, "stored")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4.0, entries[0].Clip.Duration())

	entries, err = loadEntries(ctx, files, playlist)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "intro", entries[0].Name)
	assert.Equal(t, "stored", entries[1].Name)

	bad := filepath.Join(dir, "work", "bad.cut")
	writeFile(t, bad, "prop a :img\nexplode a\n")
	_, err = loadEntries(ctx, files, bad)
	assert.ErrorContains(t, err, "line 2")

	assert.Equal(t, files.ScriptPath("stored"), watchPath(files, "stored"))
	assert.Equal(t, local, watchPath(files, local))
}

func TestPlayerPlaysSilently(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "messages.json"), `{"1":"Hello there"}`)
	source := filepath.Join(dir, "scene.cut")
	writeFile(t, source, "prop bob :img x:0:100 time:0:2\ncaption 1 time:0:1\nsound boom time:0.5\nmusic theme\n")

	base := playback.NewManualClock(time.Unix(0, 0))
	p := newPlayer(storage.NewFileStore(dir, testLogger()), source, nil, testLogger(), base)

	require.Error(t, p.Start())
	require.NoError(t, p.Load(context.Background()))
	require.NoError(t, p.Start())

	st := p.Status()
	assert.Equal(t, "scene", st.Clip)
	assert.Equal(t, 2.0, st.Duration)
	assert.False(t, st.Done)

	base.Advance(time.Second)
	p.Tick()
	bob, ok := p.stage.State("bob")
	require.True(t, ok)
	assert.InDelta(t, 50, bob.GridX, 1e-9)

	sounds, song := p.surface.recent()
	assert.Equal(t, []string{"boom"}, sounds)
	assert.Equal(t, "theme", song)

	// paused time does not advance the clip
	assert.True(t, p.TogglePause())
	base.Advance(10 * time.Second)
	p.Tick()
	assert.InDelta(t, 1.0, p.Status().Elapsed, 1e-9)
	assert.False(t, p.TogglePause())

	base.Advance(2 * time.Second)
	p.Tick()
	assert.True(t, p.Done())
	assert.Equal(t, 1.0, p.Status().Fraction())

	summary := p.Summary()
	assert.True(t, strings.HasPrefix(summary, "scene: 2.00s, entities bob, sounds boom, 1 captions, music theme"), summary)

	// restart plays from the top
	require.NoError(t, p.Start())
	assert.False(t, p.Done())
}

func TestRenderStage(t *testing.T) {
	states := []playback.EntityState{
		{ID: "stage", Kind: clip.KindStage, Color: property.White},
		{ID: "bob", Kind: clip.KindCustom, GridX: 0, GridY: 0, Color: property.NoColor},
		{ID: "amy", Kind: clip.KindCustom, GridX: 100, GridY: 100, Color: property.NoColor},
		{ID: "ghost", Kind: clip.KindCustom, GridX: 50, GridY: 50, Color: property.Color{R: 1, G: 1, B: 1, A: 0}},
	}
	got := renderStage(states, 5, 3)
	assert.Equal(t, "B    \n     \n    A", got)
	assert.Empty(t, renderStage(states, 0, 3))
}

func TestStatusFraction(t *testing.T) {
	assert.Equal(t, 0.5, Status{Elapsed: 1, Duration: 2}.Fraction())
	assert.Equal(t, 1.0, Status{Elapsed: 3, Duration: 2}.Fraction())
	assert.Equal(t, 1.0, Status{}.Fraction())
}
