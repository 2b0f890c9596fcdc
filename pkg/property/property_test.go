package property

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    Property
		wantErr error
	}{
		{
			name:  "fixed value",
			token: "x:10",
			want:  Fixed(X, 10),
		},
		{
			name:  "range",
			token: "x:10:90",
			want:  Ranged(X, 10, 90),
		},
		{
			name:  "case insensitive name",
			token: "ZRot:45",
			want:  Fixed(ZRot, 45),
		},
		{
			name:  "time with cycles",
			token: "time:0:6:3",
			want:  Property{Type: Time, Start: 0, End: 6, Cycles: 3, StartColor: NoColor, EndColor: NoColor},
		},
		{
			name:    "cycles only for time",
			token:   "x:1:2:3",
			wantErr: ErrMalformedToken,
		},
		{
			name:    "negative cycles",
			token:   "time:0:6:-1",
			wantErr: ErrMalformedToken,
		},
		{
			name:    "unknown property",
			token:   "wobble:3",
			wantErr: ErrUnknownProperty,
		},
		{
			name:    "missing value",
			token:   "x",
			wantErr: ErrMalformedToken,
		},
		{
			name:    "bad number",
			token:   "y:abc",
			wantErr: ErrMalformedToken,
		},
		{
			name:    "non-finite number",
			token:   "y:NaN",
			wantErr: ErrMalformedToken,
		},
		{
			name:    "infinite number",
			token:   "time:0:Inf",
			wantErr: ErrMalformedToken,
		},
		{
			name:  "tint fade",
			token: "tint:white:black",
			want:  TintOf(White, Black),
		},
		{
			name:  "tint single",
			token: "tint:g50",
			want:  TintOf(Color{R: Unset, G: 0.5, B: Unset, A: Unset}, Color{R: Unset, G: 0.5, B: Unset, A: Unset}),
		},
		{
			name:    "bad tint",
			token:   "tint:q12",
			wantErr: ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.token)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTokenKeepsNegativeZero(t *testing.T) {
	p, err := ParseToken("time:-0:-0")
	require.NoError(t, err)
	assert.True(t, math.Signbit(p.Start))
	assert.True(t, math.Signbit(p.End))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		token   string
		want    Color
		wantErr bool
	}{
		{token: "white", want: White},
		{token: "BLACK", want: Black},
		{token: "r100g50b0a25", want: Color{R: 1, G: 0.5, B: 0, A: 0.25}},
		{token: "a80r10", want: Color{R: 0.1, G: Unset, B: Unset, A: 0.8}},
		{token: "", wantErr: true},
		{token: "r", wantErr: true},
		{token: "r101", wantErr: true},
		{token: "r10r20", wantErr: true},
		{token: "x10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseColor(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.R, got.R, 1e-9)
			assert.InDelta(t, tt.want.G, got.G, 1e-9)
			assert.InDelta(t, tt.want.B, got.B, 1e-9)
			assert.InDelta(t, tt.want.A, got.A, 1e-9)
		})
	}
}

func TestComposeKeepsUnsetChannels(t *testing.T) {
	base := Color{R: 0.2, G: 0.3, B: 0.4, A: 1}
	mod := Color{R: Unset, G: 0.5, B: Unset, A: Unset}

	got := Compose(base, mod)
	assert.Equal(t, Color{R: 0.2, G: 0.5, B: 0.4, A: 1}, got)
}

func TestColorAtComposesBothEnds(t *testing.T) {
	base := Color{R: 1, G: 1, B: 1, A: 1}
	p := TintOf(Color{R: 0, G: Unset, B: Unset, A: Unset}, Color{R: Unset, G: 0, B: Unset, A: Unset})

	mid := p.ColorAt(base, 0.5)
	assert.InDelta(t, 0.5, mid.R, 1e-9)
	assert.InDelta(t, 0.5, mid.G, 1e-9)
	assert.InDelta(t, 1.0, mid.B, 1e-9)
	assert.InDelta(t, 1.0, mid.A, 1e-9)
}

func TestIsRange(t *testing.T) {
	assert.False(t, Fixed(X, 3).IsRange())
	assert.True(t, Ranged(X, 3, 4).IsRange())
	assert.False(t, TintOf(White, White).IsRange())
	assert.True(t, TintOf(White, Black).IsRange())
}

func TestSet(t *testing.T) {
	s, err := NewSet(Ranged(Time, 1, 4), Fixed(X, 2))
	require.NoError(t, err)

	err = s.Add(Fixed(Time, 9))
	assert.ErrorIs(t, err, ErrDuplicateProperty)
	assert.Equal(t, 2, s.Len())

	start, end := s.TimeRange()
	assert.Equal(t, 1.0, start)
	assert.Equal(t, 4.0, end)
	assert.False(t, s.IsInstant())

	assert.False(t, s.Has(Tint))
	assert.Equal(t, Property{Type: Scale}, s.Get(Scale))

	_, ranged := s.RangedNonTime()
	assert.False(t, ranged)

	require.True(t, s.Replace(Ranged(Time, 0, 2)))
	assert.Equal(t, Time, s.Properties()[0].Type)
	_, end = s.TimeRange()
	assert.Equal(t, 2.0, end)
}

func TestEmptySetIsInstant(t *testing.T) {
	var s Set
	assert.True(t, s.IsInstant())
	start, end := s.TimeRange()
	assert.Zero(t, start)
	assert.Zero(t, end)
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, ok := ParseType(typ.String())
		require.True(t, ok, typ.String())
		assert.Equal(t, typ, got)
	}
	_, ok := ParseType("bogus")
	assert.False(t, ok)
	assert.True(t, Tint.IsVisual())
	assert.False(t, Time.IsVisual())
	assert.True(t, Pitch.IsAudio())
}
