package property

import "fmt"

// Set is an ordered group of properties applied together over one time range
type Set struct {
	props []Property
}

// NewSet builds a Set, rejecting duplicate types
func NewSet(props ...Property) (Set, error) {
	var s Set
	for _, p := range props {
		if err := s.Add(p); err != nil {
			return Set{}, err
		}
	}
	return s, nil
}

// Add appends p. A second property of the same type is rejected.
func (s *Set) Add(p Property) error {
	if s.Has(p.Type) {
		return fmt.Errorf("%w '%s'", ErrDuplicateProperty, p.Type)
	}
	s.props = append(s.props, p)
	return nil
}

// Replace swaps the property of p's type, keeping its position
func (s *Set) Replace(p Property) bool {
	for i := range s.props {
		if s.props[i].Type == p.Type {
			s.props[i] = p
			return true
		}
	}
	return false
}

// Get returns the property of type t, or a zero-valued Property of that type
func (s Set) Get(t Type) Property {
	for _, p := range s.props {
		if p.Type == t {
			return p
		}
	}
	return Property{Type: t}
}

func (s Set) Has(t Type) bool {
	for _, p := range s.props {
		if p.Type == t {
			return true
		}
	}
	return false
}

// Properties returns the properties in application order
func (s Set) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

func (s Set) Len() int { return len(s.props) }

// TimeRange returns the Time start and end, 0,0 when no Time is set
func (s Set) TimeRange() (start, end float64) {
	t := s.Get(Time)
	return t.Start, t.End
}

// Cycles returns the Time cycle count
func (s Set) Cycles() float64 {
	return s.Get(Time).Cycles
}

// IsInstant reports whether the set applies at once with no duration
func (s Set) IsInstant() bool {
	start, end := s.TimeRange()
	return start == 0 && end == 0
}

// RangedNonTime returns the first ranged property other than Time
func (s Set) RangedNonTime() (Property, bool) {
	for _, p := range s.props {
		if p.Type != Time && p.IsRange() {
			return p, true
		}
	}
	return Property{}, false
}
