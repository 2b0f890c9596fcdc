package clip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

func mustSet(t *testing.T, props ...property.Property) property.Set {
	t.Helper()
	s, err := property.NewSet(props...)
	require.NoError(t, err)
	return s
}

func TestNewClipRegistersReservedEntities(t *testing.T) {
	c := NewClip()

	stage, ok := c.Entity("STAGE")
	require.True(t, ok)
	assert.Equal(t, KindStage, stage.Kind)
	assert.True(t, stage.Reserved())

	light, ok := c.Entity("StageLight")
	require.True(t, ok)
	assert.Equal(t, KindStageLight, light.Kind)

	assert.Empty(t, c.Entities())
	assert.Len(t, c.AllEntities(), 2)
	assert.Zero(t, c.Duration())
}

func TestAddEntityRejectsDuplicatesAcrossKinds(t *testing.T) {
	c := NewClip()

	_, err := c.AddArchivedEntity("Bob", Texture{Archive: 183})
	require.NoError(t, err)

	_, err = c.AddCustomEntity("bob", "img")
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	_, err = c.AddActorEntity("BOB", "guard", nil)
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	_, err = c.AddTiledEntity("bOb", 2, 2, Texture{Name: "floor"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	assert.Len(t, c.Entities(), 1)
}

func TestAddEntityRejectsReservedIDs(t *testing.T) {
	c := NewClip()
	for _, id := range []string{"stage", "Stage", "STAGELIGHT"} {
		_, err := c.AddCustomEntity(id, "img")
		assert.True(t, errors.Is(err, ErrReservedEntity), id)
	}
}

func TestAddTiledEntityValidatesPlacements(t *testing.T) {
	c := NewClip()

	_, err := c.AddTiledEntity("wall", 0, 2, Texture{Name: "brick"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTile)

	_, err = c.AddTiledEntity("wall", 2, 2, Texture{Name: "brick"}, []Tile{{Col: 2, Row: 0}})
	assert.ErrorIs(t, err, ErrInvalidTile)

	e, err := c.AddTiledEntity("wall", 2, 2, Texture{Name: "brick"}, []Tile{{Col: 1, Row: 1, Texture: Texture{Name: "door"}}})
	require.NoError(t, err)
	assert.Equal(t, KindTiled, e.Kind)
	assert.Len(t, e.Tiles, 1)
}

func TestAnimate(t *testing.T) {
	c := NewClip()

	err := c.Animate("ghost", mustSet(t, property.Fixed(property.X, 1)))
	assert.ErrorIs(t, err, ErrUndefinedEntity)

	_, err = c.AddCustomEntity("a", "img")
	require.NoError(t, err)
	require.NoError(t, c.Animate("A", mustSet(t, property.Ranged(property.Time, 0, 3))))
	require.NoError(t, c.Animate("stage", mustSet(t, property.Ranged(property.Time, 1, 4))))

	e, _ := c.Entity("a")
	assert.Len(t, e.Animations, 1)
	assert.Len(t, c.Stage().Animations, 1)
	assert.Equal(t, 4.0, c.Duration())
}

func TestDuration(t *testing.T) {
	c := NewClip()
	_, err := c.AddCustomEntity("a", "img")
	require.NoError(t, err)

	require.NoError(t, c.Animate("a", mustSet(t, property.Ranged(property.Time, 0, 5))))
	assert.Equal(t, 5.0, c.Duration())

	// a zero range entry leaves the duration alone
	require.NoError(t, c.Animate("a", mustSet(t, property.Fixed(property.X, 3))))
	assert.Equal(t, 5.0, c.Duration())

	c.AddSound("door", mustSet(t, property.Ranged(property.Time, 2, 8)))
	assert.Equal(t, 8.0, c.Duration())

	c.AddCaption(1, []string{"hi"}, mustSet(t, property.Ranged(property.Time, 0, 3)))
	assert.Equal(t, 8.0, c.Duration())

	c.AddCaption(2, []string{"bye"}, mustSet(t, property.Ranged(property.Time, 9, 12)))
	assert.Equal(t, 12.0, c.Duration())
}

func TestSong(t *testing.T) {
	c := NewClip()
	assert.False(t, c.HasMusic())
	c.SetSong("theme")
	assert.True(t, c.HasMusic())
	assert.Equal(t, "theme", c.Song())
}

func TestSummarize(t *testing.T) {
	c := NewClip()
	_, err := c.AddCustomEntity("a", "img")
	require.NoError(t, err)
	_, err = c.AddActorEntity("guard", "soldier", nil)
	require.NoError(t, err)
	c.AddSound("door", mustSet(t, property.Ranged(property.Time, 2, 8)))
	c.AddSound("DOOR", mustSet(t, property.Fixed(property.Time, 1)))
	c.AddSound("bell", mustSet(t, property.Fixed(property.Time, 0)))
	c.AddCaption(1, []string{"hi"}, mustSet(t, property.Ranged(property.Time, 0, 3)))
	c.SetSong("theme")

	assert.Equal(t, Summary{
		Duration: 8,
		Entities: []string{"a", "guard"},
		Sounds:   []string{"door", "bell"},
		Captions: 1,
		Song:     "theme",
	}, c.Summarize())
}

func TestParseTexture(t *testing.T) {
	tests := []struct {
		spec    string
		want    Texture
		wantErr bool
	}{
		{spec: "183:0", want: Texture{Archive: 183}},
		{spec: "183:2:4", want: Texture{Archive: 183, Record: 2, Frame: 4}},
		{spec: ":img", want: Texture{Name: "img"}},
		{spec: "portrait", want: Texture{Name: "portrait"}},
		{spec: "183", wantErr: true},
		{spec: "1:2:3:4", wantErr: true},
		{spec: "a:b", wantErr: true},
		{spec: "1:-2", wantErr: true},
		{spec: "", wantErr: true},
		{spec: ":", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseTexture(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, property.ErrMalformedToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
