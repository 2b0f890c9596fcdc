package script

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
)

// TextureCatalog answers whether a texture exists
type TextureCatalog interface {
	HasTexture(t clip.Texture) bool
}

// ActorResolver answers whether an actor spec can be composed
type ActorResolver interface {
	HasActor(spec string) bool
}

type SoundCatalog interface {
	HasSound(name string) bool
}

type SongCatalog interface {
	HasSong(name string) bool
}

// MessageLookup resolves a caption message id to its text tokens
type MessageLookup interface {
	Message(id int) ([]string, bool)
}

// NameSet is a case-insensitive set of names usable as a sound, song or
// actor catalog
type NameSet map[string]struct{}

func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
	return s
}

func (s NameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func (s NameSet) HasSound(name string) bool { return s.has(name) }
func (s NameSet) HasSong(name string) bool  { return s.has(name) }
func (s NameSet) HasActor(spec string) bool { return s.has(spec) }

// HasTexture accepts custom textures listed by name and archived textures
// listed as "archive:record"
func (s NameSet) HasTexture(t clip.Texture) bool {
	if t.IsCustom() {
		return s.has(t.Name)
	}
	return s.has(fmt.Sprintf("%d:%d", t.Archive, t.Record))
}

// Messages maps message ids to text and splits it into tokens
type Messages map[int]string

func (m Messages) Message(id int) ([]string, bool) {
	text, ok := m[id]
	if !ok {
		return nil, false
	}
	return strings.Fields(text), true
}
