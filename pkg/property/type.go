package property

import (
	"fmt"
	"strings"
)

// Type identifies what a Property animates
type Type int

const (
	Time Type = iota
	Tint
	X
	Y
	Z
	XRot
	YRot
	ZRot
	Scale
	Volume
	Pitch
	Balance
)

var typeNames = map[Type]string{
	Time:    "time",
	Tint:    "tint",
	X:       "x",
	Y:       "y",
	Z:       "z",
	XRot:    "xrot",
	YRot:    "yrot",
	ZRot:    "zrot",
	Scale:   "scale",
	Volume:  "volume",
	Pitch:   "pitch",
	Balance: "balance",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

// Types lists every property type in declaration order
func Types() []Type {
	return []Type{Time, Tint, X, Y, Z, XRot, YRot, ZRot, Scale, Volume, Pitch, Balance}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType resolves a property name case-insensitively
func ParseType(name string) (Type, bool) {
	t, ok := typesByName[strings.ToLower(name)]
	return t, ok
}

// IsVisual reports whether the type applies to stage entities
func (t Type) IsVisual() bool {
	switch t {
	case Tint, X, Y, Z, XRot, YRot, ZRot, Scale:
		return true
	}
	return false
}

// IsAudio reports whether the type modulates a playing sound
func (t Type) IsAudio() bool {
	switch t {
	case Volume, Pitch, Balance:
		return true
	}
	return false
}
