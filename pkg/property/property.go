package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnknownProperty   = errors.New("unknown property")
	ErrMalformedToken    = errors.New("malformed token")
	ErrDuplicateProperty = errors.New("duplicate property")
)

// Property is one animated value. Numeric types use Start/End, Tint uses
// StartColor/EndColor. Cycles is only meaningful for Time.
type Property struct {
	Type       Type    `json:"type"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Cycles     float64 `json:"cycles,omitempty"`
	StartColor Color   `json:"start_color"`
	EndColor   Color   `json:"end_color"`
}

// Fixed returns a non-ranged numeric property
func Fixed(t Type, v float64) Property {
	return Property{Type: t, Start: v, End: v, StartColor: NoColor, EndColor: NoColor}
}

// Ranged returns a numeric property interpolating from start to end
func Ranged(t Type, start, end float64) Property {
	return Property{Type: t, Start: start, End: end, StartColor: NoColor, EndColor: NoColor}
}

// TintOf returns a Tint property fading from start to end
func TintOf(start, end Color) Property {
	return Property{Type: Tint, StartColor: start, EndColor: end}
}

// IsRange reports whether the property changes over its time range
func (p Property) IsRange() bool {
	return p.Start != p.End || p.StartColor != p.EndColor
}

// Value returns the numeric value at lerp factor l
func (p Property) Value(l float64) float64 {
	return Lerp(p.Start, p.End, l)
}

// ColorAt composes both endpoints over base and interpolates between them
func (p Property) ColorAt(base Color, l float64) Color {
	return LerpColor(Compose(base, p.StartColor), Compose(base, p.EndColor), l)
}

func (p Property) String() string {
	if p.Type == Tint {
		return fmt.Sprintf("tint:%v:%v", p.StartColor, p.EndColor)
	}
	if p.Type == Time && p.Cycles > 0 {
		return fmt.Sprintf("time:%g:%g:%g", p.Start, p.End, p.Cycles)
	}
	return fmt.Sprintf("%s:%g:%g", p.Type, p.Start, p.End)
}

// ParseToken parses a property token of the form name:v1[:v2[:v3]]
func ParseToken(token string) (Property, error) {
	parts := strings.Split(token, ":")
	t, ok := ParseType(parts[0])
	if !ok {
		return Property{}, fmt.Errorf("%w '%s'", ErrUnknownProperty, parts[0])
	}
	values := parts[1:]

	maxValues := 2
	if t == Time {
		maxValues = 3
	}
	if len(values) == 0 || len(values) > maxValues {
		return Property{}, fmt.Errorf("%w: '%s' takes 1 to %d values", ErrMalformedToken, token, maxValues)
	}

	if t == Tint {
		start, err := ParseColor(values[0])
		if err != nil {
			return Property{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		end := start
		if len(values) == 2 {
			if end, err = ParseColor(values[1]); err != nil {
				return Property{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
			}
		}
		return TintOf(start, end), nil
	}

	nums := make([]float64, len(values))
	for i, v := range values {
		n, err := parseNumber(v)
		if err != nil {
			return Property{}, fmt.Errorf("%w: '%s' in '%s'", ErrMalformedToken, v, token)
		}
		nums[i] = n
	}

	p := Fixed(t, nums[0])
	if len(nums) >= 2 {
		p.End = nums[1]
	}
	if len(nums) == 3 {
		if nums[2] < 0 {
			return Property{}, fmt.Errorf("%w: negative cycle count in '%s'", ErrMalformedToken, token)
		}
		p.Cycles = nums[2]
	}
	return p, nil
}

func parseNumber(s string) (float64, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return n, nil
}
