package playback

import (
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

// Layout maps the 0-100 script grid onto device coordinates
type Layout struct {
	OffsetX float64
	OffsetY float64
	ScaleX  float64
	ScaleY  float64
}

// GridLayout maps the script grid onto itself
var GridLayout = Layout{ScaleX: 1, ScaleY: 1}

// FitLayout maps the grid onto a width x height surface
func FitLayout(width, height float64) Layout {
	return Layout{ScaleX: width / 100, ScaleY: height / 100}
}

// EntityState is the current visual state of one entity
type EntityState struct {
	ID        string         `json:"id"`
	Kind      clip.Kind      `json:"kind"`
	GridX     float64        `json:"grid_x"`
	GridY     float64        `json:"grid_y"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	XRot      float64        `json:"x_rot"`
	YRot      float64        `json:"y_rot"`
	ZRot      float64        `json:"z_rot"`
	BaseScale float64        `json:"base_scale"`
	Scale     float64        `json:"scale"`
	Color     property.Color `json:"color"`
	Order     int            `json:"order"`

	entity *clip.Entity
}

type applyFunc func(s *Stage, st *EntityState, p property.Property, lerp float64)

// applyTable holds the visual behavior of every entity property type
var applyTable = map[property.Type]applyFunc{
	property.X: func(s *Stage, st *EntityState, p property.Property, l float64) {
		st.GridX = p.Value(l)
		st.X = s.layout.OffsetX + st.GridX*s.layout.ScaleX
	},
	property.Y: func(s *Stage, st *EntityState, p property.Property, l float64) {
		st.GridY = p.Value(l)
		st.Y = s.layout.OffsetY + st.GridY*s.layout.ScaleY
	},
	property.Z: func(s *Stage, st *EntityState, p property.Property, l float64) {
		s.reorder(st, int(math.Round(p.Value(l))))
	},
	property.XRot: func(_ *Stage, st *EntityState, p property.Property, l float64) {
		st.XRot = p.Value(l)
	},
	property.YRot: func(_ *Stage, st *EntityState, p property.Property, l float64) {
		st.YRot = p.Value(l)
	},
	property.ZRot: func(_ *Stage, st *EntityState, p property.Property, l float64) {
		st.ZRot = p.Value(l)
	},
	property.Scale: func(_ *Stage, st *EntityState, p property.Property, l float64) {
		st.Scale = st.BaseScale * p.Value(l)
	},
	property.Tint: func(_ *Stage, st *EntityState, p property.Property, l float64) {
		st.Color = p.ColorAt(st.Color, l)
	},
}

// Stage keeps the visual state of a clip's entities
type Stage struct {
	mu     sync.RWMutex
	layout Layout
	states map[*clip.Entity]*EntityState
	// stacking order of user entities, bottom first
	order []*EntityState
	fixed []*EntityState
}

var (
	_ Visuals     = (*Stage)(nil)
	_ Preparer    = (*Stage)(nil)
	_ ColorReader = (*Stage)(nil)
)

func NewStage(layout Layout) *Stage {
	return &Stage{layout: layout, states: make(map[*clip.Entity]*EntityState)}
}

// SetLayout changes the grid mapping, repositioning every entity
func (s *Stage) SetLayout(layout Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = layout
	for _, st := range s.states {
		st.X = layout.OffsetX + st.GridX*layout.ScaleX
		st.Y = layout.OffsetY + st.GridY*layout.ScaleY
	}
}

// Prepare resets the stage to the entities of c
func (s *Stage) Prepare(c *clip.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[*clip.Entity]*EntityState)
	s.order = nil
	s.fixed = nil
	for _, e := range c.AllEntities() {
		s.stateLocked(e)
	}
	return nil
}

func (s *Stage) stateLocked(e *clip.Entity) *EntityState {
	if st, ok := s.states[e]; ok {
		return st
	}
	st := &EntityState{
		ID:        e.ID,
		Kind:      e.Kind,
		X:         s.layout.OffsetX,
		Y:         s.layout.OffsetY,
		BaseScale: 1,
		Scale:     1,
		Color:     property.White,
		entity:    e,
	}
	if e.Kind == clip.KindStageLight {
		st.Color = property.Color{R: 0, G: 0, B: 0, A: 0}
	}
	s.states[e] = st
	if e.Reserved() {
		s.fixed = append(s.fixed, st)
	} else {
		st.Order = len(s.order)
		s.order = append(s.order, st)
	}
	return st
}

// ApplyVisual applies one property to e at lerp. Time is ignored.
func (s *Stage) ApplyVisual(e *clip.Entity, p property.Property, lerp float64) {
	apply, ok := applyTable[p.Type]
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(s, s.stateLocked(e), p, lerp)
}

// ColorOf returns the current color of e
func (s *Stage) ColorOf(e *clip.Entity) (property.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(e).Color, true
}

// reorder moves st to stacking index z, clamped to the sibling range
func (s *Stage) reorder(st *EntityState, z int) {
	if st.entity.Reserved() || len(s.order) == 0 {
		return
	}
	z = max(0, min(z, len(s.order)-1))
	if st.Order == z {
		return
	}
	s.order = slices.Delete(s.order, st.Order, st.Order+1)
	s.order = slices.Insert(s.order, z, st)
	for i, o := range s.order {
		o.Order = i
	}
}

// State returns a copy of the state of the entity with the given id
func (s *Stage) State(id string) (EntityState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for e, st := range s.states {
		if strings.EqualFold(e.ID, id) {
			return *st, true
		}
	}
	return EntityState{}, false
}

// Snapshot returns the stage and stage light followed by user entities
// bottom to top
func (s *Stage) Snapshot() []EntityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EntityState, 0, len(s.fixed)+len(s.order))
	for _, st := range s.fixed {
		out = append(out, *st)
	}
	for _, st := range s.order {
		out = append(out, *st)
	}
	return out
}

// Entity returns the clip entity the state belongs to
func (st EntityState) Entity() *clip.Entity {
	return st.entity
}
