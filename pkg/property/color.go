package property

import (
	"fmt"
	"strconv"
	"strings"
)

// Unset marks a color channel that inherits the underlying value
const Unset = -1.0

// Color is an RGBA color with channels in [0,1], or Unset
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

var (
	White   = Color{R: 1, G: 1, B: 1, A: 1}
	Black   = Color{R: 0, G: 0, B: 0, A: 1}
	NoColor = Color{R: Unset, G: Unset, B: Unset, A: Unset}
)

// ParseColor parses "white", "black" or a channel list such as "r100g50a80".
// Channel values are percentages; channels left out stay Unset.
func ParseColor(token string) (Color, error) {
	switch strings.ToLower(token) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	case "":
		return NoColor, fmt.Errorf("empty color")
	}

	c := NoColor
	seen := make(map[byte]bool, 4)
	s := strings.ToLower(token)
	for i := 0; i < len(s); {
		ch := s[i]
		if ch != 'r' && ch != 'g' && ch != 'b' && ch != 'a' {
			return NoColor, fmt.Errorf("invalid color channel %q in %q", ch, token)
		}
		if seen[ch] {
			return NoColor, fmt.Errorf("channel %q repeated in %q", ch, token)
		}
		seen[ch] = true

		j := i + 1
		for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
			j++
		}
		if j == i+1 {
			return NoColor, fmt.Errorf("channel %q has no value in %q", ch, token)
		}
		pct, err := strconv.ParseFloat(s[i+1:j], 64)
		if err != nil || pct < 0 || pct > 100 {
			return NoColor, fmt.Errorf("channel %q out of range in %q", ch, token)
		}

		v := pct / 100
		switch ch {
		case 'r':
			c.R = v
		case 'g':
			c.G = v
		case 'b':
			c.B = v
		case 'a':
			c.A = v
		}
		i = j
	}
	return c, nil
}

// IsSet reports whether any channel carries a value
func (c Color) IsSet() bool {
	return c.R != Unset || c.G != Unset || c.B != Unset || c.A != Unset
}

// Compose overlays mod on base: unset channels of mod keep the base channel
func Compose(base, mod Color) Color {
	return Color{
		R: pick(base.R, mod.R),
		G: pick(base.G, mod.G),
		B: pick(base.B, mod.B),
		A: pick(base.A, mod.A),
	}
}

func pick(base, mod float64) float64 {
	if mod == Unset {
		return base
	}
	return mod
}

// LerpColor interpolates every channel from a to b
func LerpColor(a, b Color, l float64) Color {
	return Color{
		R: Lerp(a.R, b.R, l),
		G: Lerp(a.G, b.G, l),
		B: Lerp(a.B, b.B, l),
		A: Lerp(a.A, b.A, l),
	}
}

// Lerp performs linear interpolation between a and b
func Lerp(a, b, l float64) float64 {
	return a + (b-a)*l
}
