// Package config loads editor preferences from a TOML file.
//
// A missing file is not an error: Load returns Default(). Environment
// variables prefixed ZXPAINT_ override individual keys after the file is
// read.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"zxpaint/internal/editor"
	"zxpaint/internal/history"
	"zxpaint/pkg/scr"
)

const EnvPrefix = "ZXPAINT_"

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Editor  EditorConfig  `toml:"editor"`
	View    ViewConfig    `toml:"view"`
	Project ProjectConfig `toml:"project"`
	Log     LogConfig     `toml:"log"`
}

type EditorConfig struct {
	Format    string `toml:"format"`
	UndoDepth int    `toml:"undo_depth"`
	Ink       int    `toml:"ink"`
	Paper     int    `toml:"paper"`
	Bright    bool   `toml:"bright"`
	Layers    bool   `toml:"layers"`
}

type ViewConfig struct {
	Scale int  `toml:"scale"`
	Flash bool `toml:"flash"`
}

type ProjectConfig struct {
	Compression bool   `toml:"compression"`
	Author      string `toml:"author"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func Default() Config {
	return Config{
		Editor: EditorConfig{
			Format:    "scr",
			UndoDepth: history.DefaultMaxEntries,
			Ink:       7,
			Paper:     0,
		},
		View: ViewConfig{Scale: 3, Flash: true},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults with environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := parse(path, data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML data over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := parse("<data>", data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func parse(source string, data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DefaultPath is config.toml under the user configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "zxpaint", "config.toml")
}

func (c Config) Validate() error {
	if _, err := scr.ByName(c.Editor.Format); err != nil {
		return fmt.Errorf("%w: editor.format %q", ErrInvalid, c.Editor.Format)
	}
	if c.Editor.UndoDepth < 1 {
		return fmt.Errorf("%w: editor.undo_depth %d", ErrInvalid, c.Editor.UndoDepth)
	}
	if c.Editor.Ink < 0 || c.Editor.Ink > 7 {
		return fmt.Errorf("%w: editor.ink %d", ErrInvalid, c.Editor.Ink)
	}
	if c.Editor.Paper < 0 || c.Editor.Paper > 7 {
		return fmt.Errorf("%w: editor.paper %d", ErrInvalid, c.Editor.Paper)
	}
	if c.View.Scale < 1 || c.View.Scale > 8 {
		return fmt.Errorf("%w: view.scale %d", ErrInvalid, c.View.Scale)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Descriptor resolves editor.format.
func (c Config) Descriptor() (scr.Descriptor, error) {
	return scr.ByName(c.Editor.Format)
}

// Context builds the initial drawing context.
func (c Config) Context() editor.Context {
	ctx := editor.DefaultContext()
	ctx.Ink = c.Editor.Ink
	ctx.Paper = c.Editor.Paper
	ctx.Bright = c.Editor.Bright
	ctx.Second = ctx.Colors
	return ctx
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalid, EnvPrefix, key, v)
		}
		*dst = n
		return nil
	}
	str("FORMAT", &c.Editor.Format)
	str("LOG_LEVEL", &c.Log.Level)
	str("AUTHOR", &c.Project.Author)
	if err := num("UNDO_DEPTH", &c.Editor.UndoDepth); err != nil {
		return err
	}
	return num("SCALE", &c.View.Scale)
}
