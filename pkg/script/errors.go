package script

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrDuplicateEntity   = clip.ErrDuplicateEntity
	ErrReservedEntity    = clip.ErrReservedEntity
	ErrUndefinedEntity   = clip.ErrUndefinedEntity
	ErrUnknownProperty   = property.ErrUnknownProperty
	ErrMalformedToken    = property.ErrMalformedToken
	ErrDuplicateProperty = property.ErrDuplicateProperty
	ErrRangeWithoutTime  = errors.New("ranged property requires a ranged time")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrMissingAnchor     = errors.New("a fixed time range is required to resolve relative times")
	ErrRangedCaptionTint = errors.New("caption tint takes a single color")

	ErrUnknownSound   = errors.New("unknown sound")
	ErrUnknownSong    = errors.New("unknown song")
	ErrUnknownMessage = errors.New("unknown message")
	ErrUnknownTexture = errors.New("unknown texture")
	ErrUnknownActor   = errors.New("unknown actor")
)

// ScriptError reports a failure attributed to one script line
type ScriptError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func lineError(line int, err error) *ScriptError {
	return &ScriptError{Line: line, Msg: err.Error(), Err: err}
}

// ResourceError reports an asset a script references that does not exist
type ResourceError struct {
	Kind string
	Name string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s '%s'", e.Err, e.Name)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func missing(kind string, sentinel error, name string) error {
	return &ResourceError{Kind: kind, Name: name, Err: sentinel}
}
