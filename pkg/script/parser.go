package script

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/property"
)

var (
	entityProps  = allow(property.Time, property.Tint, property.X, property.Y, property.Z, property.XRot, property.YRot, property.ZRot, property.Scale)
	soundProps   = allow(property.Time, property.Volume, property.Pitch, property.Balance)
	captionProps = allow(property.Time, property.Tint)
)

func allow(types ...property.Type) map[property.Type]bool {
	m := make(map[property.Type]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Parser compiles script lines into a Clip. Every catalog is optional; a nil
// catalog accepts any name.
type Parser struct {
	Textures TextureCatalog
	Actors   ActorResolver
	Sounds   SoundCatalog
	Songs    SongCatalog
	Messages MessageLookup
}

// command is one classified script line waiting to be applied
type command struct {
	line     int
	name     string
	set      property.Set
	deferred bool

	id        string
	texture   clip.Texture
	actor     string
	equipment []string
	width     int
	height    int
	tiles     []clip.Tile
	messageID int
	tokens    []string
}

// BuildClip compiles lines with no resource catalogs
func BuildClip(lines []string) (*clip.Clip, error) {
	return (&Parser{}).BuildClip(lines)
}

// Read splits r into lines and compiles them
func (p *Parser) Read(r io.Reader) (*clip.Clip, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return p.BuildClip(lines)
}

// BuildClip compiles lines into a Clip. Commands with a negative Time are
// applied after all others, with negative values counted back from the
// duration the other commands establish. Any error discards the clip.
func (p *Parser) BuildClip(lines []string) (*clip.Clip, error) {
	var ready, deferred []*command
	for i, raw := range lines {
		cmd, err := p.classify(i+1, raw)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			continue
		}
		if cmd.deferred {
			deferred = append(deferred, cmd)
		} else {
			ready = append(ready, cmd)
		}
	}

	c := clip.NewClip()
	for _, cmd := range ready {
		if err := apply(c, cmd, 0); err != nil {
			return nil, err
		}
	}
	if len(deferred) == 0 {
		return c, nil
	}

	d := c.Duration()
	if d <= 0 {
		return nil, lineError(deferred[0].line, ErrMissingAnchor)
	}
	for _, cmd := range deferred {
		if err := apply(c, cmd, d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// classify tokenizes one line and parses its arguments. Blank lines and
// comments yield nil.
func (p *Parser) classify(line int, raw string) (*command, error) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "-") {
		return nil, nil
	}
	fields := strings.Fields(text)
	cmd := &command{line: line, name: strings.ToLower(fields[0])}
	args := fields[1:]

	var err error
	switch cmd.name {
	case "prop":
		err = p.parseProp(cmd, args)
	case "actor":
		err = p.parseActor(cmd, args)
	case "tile":
		err = p.parseTile(cmd, args)
	case "change":
		err = p.parseChange(cmd, args)
	case "caption":
		err = p.parseCaption(cmd, args)
	case "sound":
		err = p.parseSound(cmd, args)
	case "music":
		err = p.parseMusic(cmd, args)
	default:
		return nil, &ScriptError{Line: line, Msg: fmt.Sprintf("Unknown command '%s'", fields[0]), Err: ErrUnknownCommand}
	}
	if err != nil {
		return nil, lineError(line, err)
	}

	if t := cmd.set.Get(property.Time); cmd.set.Has(property.Time) {
		cmd.deferred = math.Signbit(t.Start) || math.Signbit(t.End)
	}
	return cmd, nil
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("%w: usage: %s", ErrMalformedToken, usage)
	}
	return nil
}

func parseProperties(tokens []string, allowed map[property.Type]bool) (property.Set, error) {
	var s property.Set
	for _, tok := range tokens {
		prop, err := property.ParseToken(tok)
		if err != nil {
			return property.Set{}, err
		}
		if !allowed[prop.Type] {
			return property.Set{}, fmt.Errorf("%w '%s' here", ErrUnknownProperty, prop.Type)
		}
		if err := s.Add(prop); err != nil {
			return property.Set{}, err
		}
	}
	return s, nil
}

func (p *Parser) checkTexture(t clip.Texture) error {
	if p.Textures != nil && !p.Textures.HasTexture(t) {
		return missing("texture", ErrUnknownTexture, t.String())
	}
	return nil
}

func (p *Parser) parseProp(cmd *command, args []string) error {
	if err := need(args, 2, "prop <id> <texture> [properties...]"); err != nil {
		return err
	}
	tex, err := clip.ParseTexture(args[1])
	if err != nil {
		return err
	}
	if err := p.checkTexture(tex); err != nil {
		return err
	}
	cmd.id, cmd.texture = args[0], tex
	cmd.set, err = parseProperties(args[2:], entityProps)
	return err
}

func (p *Parser) parseActor(cmd *command, args []string) error {
	if err := need(args, 2, "actor <id> <actor> [equipment...] [properties...]"); err != nil {
		return err
	}
	if p.Actors != nil && !p.Actors.HasActor(args[1]) {
		return missing("actor", ErrUnknownActor, args[1])
	}
	cmd.id, cmd.actor = args[0], args[1]

	var props []string
	for _, tok := range args[2:] {
		if strings.Contains(tok, ":") {
			props = append(props, tok)
		} else {
			cmd.equipment = append(cmd.equipment, tok)
		}
	}
	var err error
	cmd.set, err = parseProperties(props, entityProps)
	return err
}

func (p *Parser) parseTile(cmd *command, args []string) error {
	if err := need(args, 4, "tile <id> <w> <h> <fill> [col,row=texture...] [properties...]"); err != nil {
		return err
	}
	w, errW := strconv.Atoi(args[1])
	h, errH := strconv.Atoi(args[2])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: tile size '%s %s'", ErrMalformedToken, args[1], args[2])
	}
	fill, err := clip.ParseTexture(args[3])
	if err != nil {
		return err
	}
	if err := p.checkTexture(fill); err != nil {
		return err
	}
	cmd.id, cmd.width, cmd.height, cmd.texture = args[0], w, h, fill

	var props []string
	for _, tok := range args[4:] {
		if !strings.Contains(tok, "=") {
			props = append(props, tok)
			continue
		}
		tile, err := parseTilePlacement(tok, w, h)
		if err != nil {
			return err
		}
		if err := p.checkTexture(tile.Texture); err != nil {
			return err
		}
		cmd.tiles = append(cmd.tiles, tile)
	}
	cmd.set, err = parseProperties(props, entityProps)
	return err
}

func parseTilePlacement(tok string, w, h int) (clip.Tile, error) {
	cell, texSpec, _ := strings.Cut(tok, "=")
	colStr, rowStr, ok := strings.Cut(cell, ",")
	if !ok {
		return clip.Tile{}, fmt.Errorf("%w: tile '%s'", ErrMalformedToken, tok)
	}
	col, errC := strconv.Atoi(colStr)
	row, errR := strconv.Atoi(rowStr)
	if errC != nil || errR != nil || col < 0 || col >= w || row < 0 || row >= h {
		return clip.Tile{}, fmt.Errorf("%w: tile '%s' outside %dx%d", ErrMalformedToken, tok, w, h)
	}
	tex, err := clip.ParseTexture(texSpec)
	if err != nil {
		return clip.Tile{}, err
	}
	return clip.Tile{Col: col, Row: row, Texture: tex}, nil
}

func (p *Parser) parseChange(cmd *command, args []string) error {
	if err := need(args, 1, "change <id> [properties...]"); err != nil {
		return err
	}
	cmd.id = args[0]
	var err error
	cmd.set, err = parseProperties(args[1:], entityProps)
	return err
}

func (p *Parser) parseCaption(cmd *command, args []string) error {
	if err := need(args, 1, "caption <message> [properties...]"); err != nil {
		return err
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: message id '%s'", ErrMalformedToken, args[0])
	}
	cmd.messageID = id
	if p.Messages != nil {
		tokens, ok := p.Messages.Message(id)
		if !ok {
			return missing("message", ErrUnknownMessage, args[0])
		}
		cmd.tokens = tokens
	} else {
		cmd.tokens = []string{args[0]}
	}
	cmd.set, err = parseProperties(args[1:], captionProps)
	if err != nil {
		return err
	}
	if cmd.set.Get(property.Tint).IsRange() {
		return ErrRangedCaptionTint
	}
	return nil
}

func (p *Parser) parseSound(cmd *command, args []string) error {
	if err := need(args, 1, "sound <name> [properties...]"); err != nil {
		return err
	}
	if p.Sounds != nil && !p.Sounds.HasSound(args[0]) {
		return missing("sound", ErrUnknownSound, args[0])
	}
	cmd.id = args[0]
	var err error
	cmd.set, err = parseProperties(args[1:], soundProps)
	return err
}

func (p *Parser) parseMusic(cmd *command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: music <name>", ErrMalformedToken)
	}
	if p.Songs != nil && !p.Songs.HasSong(args[0]) {
		return missing("song", ErrUnknownSong, args[0])
	}
	cmd.id = args[0]
	return nil
}

// resolveTime replaces negative Time values with d+v and validates the range
func resolveTime(s *property.Set, d float64) error {
	if !s.Has(property.Time) {
		return nil
	}
	t := s.Get(property.Time)
	if math.Signbit(t.Start) {
		t.Start = d + t.Start
	}
	if math.Signbit(t.End) {
		t.End = d + t.End
	}
	if t.Start < 0 || t.End < 0 || t.Start > t.End {
		return fmt.Errorf("%w %g..%g", ErrInvalidTimeRange, t.Start, t.End)
	}
	s.Replace(t)
	return nil
}

func checkRanges(s property.Set) error {
	p, ok := s.RangedNonTime()
	if !ok {
		return nil
	}
	if !s.Get(property.Time).IsRange() {
		return fmt.Errorf("%w: '%s'", ErrRangeWithoutTime, p.Type)
	}
	return nil
}

// apply adds cmd to c. d is the anchor duration for deferred commands.
func apply(c *clip.Clip, cmd *command, d float64) error {
	if err := resolveTime(&cmd.set, d); err != nil {
		return lineError(cmd.line, err)
	}
	if err := checkRanges(cmd.set); err != nil {
		return lineError(cmd.line, err)
	}

	var err error
	switch cmd.name {
	case "prop":
		if cmd.texture.IsCustom() {
			_, err = c.AddCustomEntity(cmd.id, cmd.texture.Name)
		} else {
			_, err = c.AddArchivedEntity(cmd.id, cmd.texture)
		}
	case "actor":
		_, err = c.AddActorEntity(cmd.id, cmd.actor, cmd.equipment)
	case "tile":
		_, err = c.AddTiledEntity(cmd.id, cmd.width, cmd.height, cmd.texture, cmd.tiles)
	case "change":
		if cmd.set.Len() == 0 {
			if _, ok := c.Entity(cmd.id); !ok {
				err = fmt.Errorf("%w '%s'", ErrUndefinedEntity, cmd.id)
			}
		}
	case "caption":
		c.AddCaption(cmd.messageID, cmd.tokens, cmd.set)
	case "sound":
		c.AddSound(cmd.id, cmd.set)
	case "music":
		c.SetSong(cmd.id)
	}
	if err != nil {
		return lineError(cmd.line, err)
	}

	switch cmd.name {
	case "prop", "actor", "tile", "change":
		if cmd.set.Len() > 0 {
			if err := c.Animate(cmd.id, cmd.set); err != nil {
				return lineError(cmd.line, err)
			}
		}
	}
	return nil
}
