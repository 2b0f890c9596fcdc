package clip

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

// Kind is the visual kind of an entity
type Kind int

const (
	KindStage Kind = iota
	KindStageLight
	KindArchived
	KindCustom
	KindTiled
	KindActor
)

func (k Kind) String() string {
	switch k {
	case KindStage:
		return "stage"
	case KindStageLight:
		return "stagelight"
	case KindArchived:
		return "archived"
	case KindCustom:
		return "custom"
	case KindTiled:
		return "tiled"
	case KindActor:
		return "actor"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	StageID      = "stage"
	StageLightID = "stagelight"
)

// Texture references either an archived record or a named custom image
type Texture struct {
	Archive int    `json:"archive,omitempty"`
	Record  int    `json:"record,omitempty"`
	Frame   int    `json:"frame,omitempty"`
	Name    string `json:"name,omitempty"`
}

// IsCustom reports whether the texture is a named image
func (t Texture) IsCustom() bool {
	return t.Name != ""
}

func (t Texture) String() string {
	if t.IsCustom() {
		return ":" + t.Name
	}
	return fmt.Sprintf("%d:%d:%d", t.Archive, t.Record, t.Frame)
}

// ParseTexture parses archive:record[:frame] or :name / name
func ParseTexture(spec string) (Texture, error) {
	if spec == "" || spec == ":" {
		return Texture{}, fmt.Errorf("%w: empty texture", property.ErrMalformedToken)
	}
	if strings.HasPrefix(spec, ":") {
		return Texture{Name: spec[1:]}, nil
	}
	parts := strings.Split(spec, ":")
	if len(parts) == 1 {
		if _, err := strconv.Atoi(spec); err == nil {
			return Texture{}, fmt.Errorf("%w: texture '%s' needs archive:record", property.ErrMalformedToken, spec)
		}
		return Texture{Name: spec}, nil
	}
	if len(parts) > 3 {
		return Texture{}, fmt.Errorf("%w: texture '%s'", property.ErrMalformedToken, spec)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Texture{}, fmt.Errorf("%w: texture '%s'", property.ErrMalformedToken, spec)
		}
		nums[i] = n
	}
	return Texture{Archive: nums[0], Record: nums[1], Frame: nums[2]}, nil
}

// Tile places a texture in one cell of a tiled entity
type Tile struct {
	Col     int     `json:"col"`
	Row     int     `json:"row"`
	Texture Texture `json:"texture"`
}

// Entity is a visual element on the stage with its scheduled animations
type Entity struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Texture Texture `json:"texture,omitempty"`

	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	Fill   Texture `json:"fill,omitempty"`
	Tiles  []Tile  `json:"tiles,omitempty"`

	Actor     string   `json:"actor,omitempty"`
	Equipment []string `json:"equipment,omitempty"`

	Animations []property.Set `json:"-"`

	key string
}

// Key returns the case-folded id used for lookups
func (e *Entity) Key() string {
	return e.key
}

// Reserved reports whether the entity is the stage or the stage light
func (e *Entity) Reserved() bool {
	return e.Kind == KindStage || e.Kind == KindStageLight
}

func foldID(id string) string {
	return cases.Fold().String(id)
}

// IsReservedID reports whether id names the stage or stage light
func IsReservedID(id string) bool {
	k := foldID(id)
	return k == StageID || k == StageLightID
}
