package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
	pkgstorage "github.com/jwebster45206/cutscene-engine/pkg/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "./data", "data directory holding messages.json, sounds/ and music/")
	asJSON := fs.Bool("json", false, "print summaries as JSON")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: validate [-data dir] [-json] <script.cut|playlist.yaml>...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	v := &Validator{files: storage.NewFileStore(*dataDir, nil), stdout: stdout, json: *asJSON}
	parser, err := v.files.Parser(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load resources: %v\n", err)
		return 1
	}
	v.parser = parser

	failed := 0
	for _, filename := range fs.Args() {
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", filename, err)
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d files failed validation\n", failed, fs.NArg())
		return 1
	}
	return 0
}

// Validator compiles script and playlist files against one data directory
type Validator struct {
	files  *storage.FileStore
	parser *script.Parser
	stdout io.Writer
	json   bool
}

func (v *Validator) validateFile(filename string) error {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filepath.Base(filename), ext)
	if err := pkgstorage.ValidateName(name); err != nil {
		return err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	switch ext {
	case storage.ScriptExt:
		c, err := v.parser.BuildClip(storage.SplitLines(string(data)))
		if err != nil {
			return err
		}
		return v.report(name, c.Summarize())

	case ".yaml", ".yml":
		p, err := sequencer.ParsePlaylist(data)
		if err != nil {
			return err
		}
		entries, err := sequencer.CompilePlaylist(context.Background(), p, v.parser, v.files.ScriptLoader(filepath.Dir(filename)))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := v.report(name+"/"+e.Name, e.Clip.Summarize()); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported file type %q (want %s or .yaml)", ext, storage.ScriptExt)
	}
}

func (v *Validator) report(name string, s clip.Summary) error {
	if v.json {
		data, err := json.Marshal(struct {
			Name string `json:"name"`
			clip.Summary
		}{name, s})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(v.stdout, string(data))
		return err
	}
	_, err := fmt.Fprintf(v.stdout, "%s: ok, %.2fs, %d entities, %d captions, %d sounds%s\n",
		name, s.Duration, len(s.Entities), s.Captions, len(s.Sounds), songSuffix(s.Song))
	return err
}

func songSuffix(song string) string {
	if song == "" {
		return ""
	}
	return ", music " + song
}
