package sequencer

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
)

// Playlist is an ordered list of clips, each given inline or by script name
type Playlist struct {
	Name  string         `yaml:"name" json:"name"`
	Clips []PlaylistClip `yaml:"clips" json:"clips"`
}

type PlaylistClip struct {
	Name   string `yaml:"name" json:"name"`
	Script string `yaml:"script,omitempty" json:"script,omitempty"`
	Inline string `yaml:"inline,omitempty" json:"inline,omitempty"`
}

// LoadFunc returns the lines of a stored script
type LoadFunc func(ctx context.Context, name string) ([]string, error)

// ParsePlaylist decodes and validates a YAML playlist
func ParsePlaylist(data []byte) (*Playlist, error) {
	var p Playlist
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every clip names exactly one source
func (p *Playlist) Validate() error {
	if len(p.Clips) == 0 {
		return fmt.Errorf("playlist %q has no clips", p.Name)
	}
	for i, c := range p.Clips {
		if (c.Script == "") == (c.Inline == "") {
			return fmt.Errorf("playlist %q clip %d: exactly one of script or inline is required", p.Name, i)
		}
	}
	return nil
}

// Marshal encodes the playlist as YAML
func (p *Playlist) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// CompilePlaylist builds every clip concurrently and returns entries in
// playlist order. The first failure cancels the rest.
func CompilePlaylist(ctx context.Context, p *Playlist, parser *script.Parser, load LoadFunc) ([]Entry, error) {
	if parser == nil {
		parser = &script.Parser{}
	}
	entries := make([]Entry, len(p.Clips))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, pc := range p.Clips {
		g.Go(func() error {
			name := pc.Name
			if name == "" {
				name = pc.Script
			}

			var lines []string
			if pc.Inline != "" {
				lines = strings.Split(pc.Inline, "\n")
			} else {
				if load == nil {
					return fmt.Errorf("clip %q: no script loader", name)
				}
				var err error
				if lines, err = load(ctx, pc.Script); err != nil {
					return fmt.Errorf("clip %q: %w", name, err)
				}
			}

			c, err := parser.BuildClip(lines)
			if err != nil {
				return fmt.Errorf("clip %q: %w", name, err)
			}
			entries[i] = Entry{Name: name, Clip: c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
