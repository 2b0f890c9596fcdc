package clip

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

var (
	ErrDuplicateEntity = errors.New("duplicate entity id")
	ErrReservedEntity  = errors.New("reserved entity id")
	ErrUndefinedEntity = errors.New("undefined entity id")
	ErrInvalidTile     = errors.New("invalid tile")
)

// Sound is a scheduled play of a named sound clip
type Sound struct {
	Name string
	Set  property.Set
}

// Caption shows a message's tokens over a time range
type Caption struct {
	MessageID int
	Tokens    []string
	Set       property.Set
}

// Clip holds everything one cutscene schedules. It is built by the parser
// and only read during playback.
type Clip struct {
	stage      *Entity
	stageLight *Entity
	entities   []*Entity
	byKey      map[string]*Entity
	sounds     []Sound
	captions   []Caption
	song       string
}

// NewClip returns an empty clip with the stage and stage light registered
func NewClip() *Clip {
	c := &Clip{byKey: make(map[string]*Entity)}
	c.stage = &Entity{ID: StageID, Kind: KindStage, key: StageID}
	c.stageLight = &Entity{ID: StageLightID, Kind: KindStageLight, key: StageLightID}
	c.byKey[StageID] = c.stage
	c.byKey[StageLightID] = c.stageLight
	return c
}

func (c *Clip) addEntity(e *Entity) (*Entity, error) {
	e.key = foldID(e.ID)
	if e.key == StageID || e.key == StageLightID {
		return nil, fmt.Errorf("%w '%s'", ErrReservedEntity, e.ID)
	}
	if _, exists := c.byKey[e.key]; exists {
		return nil, fmt.Errorf("%w '%s'", ErrDuplicateEntity, e.ID)
	}
	c.byKey[e.key] = e
	c.entities = append(c.entities, e)
	return e, nil
}

// AddArchivedEntity registers an entity drawn from an archived texture
func (c *Clip) AddArchivedEntity(id string, tex Texture) (*Entity, error) {
	if tex.IsCustom() {
		return nil, fmt.Errorf("texture %s is not archived", tex)
	}
	return c.addEntity(&Entity{ID: id, Kind: KindArchived, Texture: tex})
}

// AddCustomEntity registers an entity drawn from a named image
func (c *Clip) AddCustomEntity(id, name string) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("custom texture name required")
	}
	return c.addEntity(&Entity{ID: id, Kind: KindCustom, Texture: Texture{Name: name}})
}

// AddTiledEntity registers a w x h composite filled with fill and
// overridden by tiles
func (c *Clip) AddTiledEntity(id string, w, h int, fill Texture, tiles []Tile) (*Entity, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidTile, w, h)
	}
	for _, t := range tiles {
		if t.Col < 0 || t.Col >= w || t.Row < 0 || t.Row >= h {
			return nil, fmt.Errorf("%w: %d,%d outside %dx%d", ErrInvalidTile, t.Col, t.Row, w, h)
		}
	}
	return c.addEntity(&Entity{ID: id, Kind: KindTiled, Width: w, Height: h, Fill: fill, Tiles: tiles})
}

// AddActorEntity registers a paperdoll actor with its equipment
func (c *Clip) AddActorEntity(id, actor string, equipment []string) (*Entity, error) {
	return c.addEntity(&Entity{ID: id, Kind: KindActor, Actor: actor, Equipment: equipment})
}

// Entity finds an entity by case-insensitive id, reserved ids included
func (c *Clip) Entity(id string) (*Entity, bool) {
	e, ok := c.byKey[foldID(id)]
	return e, ok
}

// Animate schedules s against an existing entity
func (c *Clip) Animate(id string, s property.Set) error {
	e, ok := c.Entity(id)
	if !ok {
		return fmt.Errorf("%w '%s'", ErrUndefinedEntity, id)
	}
	e.Animations = append(e.Animations, s)
	return nil
}

func (c *Clip) AddCaption(messageID int, tokens []string, s property.Set) {
	c.captions = append(c.captions, Caption{MessageID: messageID, Tokens: tokens, Set: s})
}

func (c *Clip) AddSound(name string, s property.Set) {
	c.sounds = append(c.sounds, Sound{Name: name, Set: s})
}

func (c *Clip) SetSong(name string) {
	c.song = name
}

// Entities returns user entities in creation order
func (c *Clip) Entities() []*Entity {
	out := make([]*Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// AllEntities returns the stage, the stage light and then user entities
func (c *Clip) AllEntities() []*Entity {
	out := make([]*Entity, 0, len(c.entities)+2)
	out = append(out, c.stage, c.stageLight)
	return append(out, c.entities...)
}

func (c *Clip) Stage() *Entity      { return c.stage }
func (c *Clip) StageLight() *Entity { return c.stageLight }
func (c *Clip) Sounds() []Sound     { return c.sounds }
func (c *Clip) Captions() []Caption { return c.captions }
func (c *Clip) HasMusic() bool      { return c.song != "" }
func (c *Clip) Song() string        { return c.song }

// Duration returns the latest Time end across every scheduled set
func (c *Clip) Duration() float64 {
	var d float64
	consider := func(s property.Set) {
		if _, end := s.TimeRange(); end > d {
			d = end
		}
	}
	for _, e := range c.AllEntities() {
		for _, s := range e.Animations {
			consider(s)
		}
	}
	for _, s := range c.sounds {
		consider(s.Set)
	}
	for _, cp := range c.captions {
		consider(cp.Set)
	}
	return d
}

// Summary describes a compiled clip for tools and APIs
type Summary struct {
	Duration float64  `json:"duration"`
	Entities []string `json:"entities"`
	Sounds   []string `json:"sounds"`
	Captions int      `json:"captions"`
	Song     string   `json:"song,omitempty"`
}

// Summarize lists user entity ids and distinct sound names in order of
// first appearance
func (c *Clip) Summarize() Summary {
	s := Summary{
		Duration: c.Duration(),
		Entities: make([]string, 0, len(c.entities)),
		Sounds:   []string{},
		Captions: len(c.captions),
		Song:     c.song,
	}
	for _, e := range c.entities {
		s.Entities = append(s.Entities, e.ID)
	}
	seen := make(map[string]bool)
	for _, snd := range c.sounds {
		key := foldID(snd.Name)
		if !seen[key] {
			seen[key] = true
			s.Sounds = append(s.Sounds, snd.Name)
		}
	}
	return s
}
