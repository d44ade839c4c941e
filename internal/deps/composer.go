package deps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const outputTail = 20

// Composer installs backend packages into the host application.
type Composer struct {
	runner   Runner
	bin      string
	root     string
	authFile string
	log      *logging.Logger
}

// ComposerOptions configures a Composer.
type ComposerOptions struct {
	Bin      string // defaults to "composer"
	Root     string // host application root, holds composer.json
	AuthFile string // auth.json passed through COMPOSER_AUTH
}

// NewComposer creates a backend installer.
func NewComposer(opts ComposerOptions, runner Runner, log *logging.Logger) *Composer {
	bin := opts.Bin
	if bin == "" {
		bin = "composer"
	}
	return &Composer{
		runner:   runner,
		bin:      bin,
		root:     opts.Root,
		authFile: opts.AuthFile,
		log:      log.Sub("composer"),
	}
}

// Root returns the host application root.
func (c *Composer) Root() string { return c.root }

// ManifestPath returns the host composer.json location.
func (c *Composer) ManifestPath() string { return filepath.Join(c.root, "composer.json") }

// Install runs composer require for one package. On failure the host
// composer.json entry for the package is restored to its prior state.
func (c *Composer) Install(ctx context.Context, name, constraint string, dev bool, onLine LineFunc) error {
	spec := name
	if constraint != "" {
		spec = name + ":" + constraint
	}
	args := []string{"require", spec, "--ignore-platform-reqs", "--no-interaction", "--no-ansi"}
	if dev {
		args = append(args, "--dev")
	}
	cmd := Command{Name: c.bin, Args: args, Dir: c.root, Env: c.env()}

	section := "require"
	if dev {
		section = "require-dev"
	}
	snap := c.snapshot(section, name)

	out := newTail(outputTail)
	c.log.Info().Str("package", spec).Bool("dev", dev).Msg("installing backend package")
	if err := c.runner.Run(ctx, cmd, out.wrap(onLine)); err != nil {
		if rbErr := snap.restore(); rbErr != nil {
			c.log.Error().Err(rbErr).Str("package", name).Msg("rolling back composer.json failed")
		}
		return newError(name, cmd, out, err)
	}
	return nil
}

// Uninstall runs composer remove.
func (c *Composer) Uninstall(ctx context.Context, name string, onLine LineFunc) error {
	cmd := Command{
		Name: c.bin,
		Args: []string{"remove", name, "--no-interaction", "--no-ansi"},
		Dir:  c.root,
		Env:  c.env(),
	}
	out := newTail(outputTail)
	c.log.Info().Str("package", name).Msg("removing backend package")
	if err := c.runner.Run(ctx, cmd, out.wrap(onLine)); err != nil {
		return newError(name, cmd, out, err)
	}
	return nil
}

// env passes the host auth.json content through COMPOSER_AUTH.
func (c *Composer) env() []string {
	if c.authFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.authFile)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", c.authFile).Msg("reading auth file")
		}
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return nil
	}
	return []string{"COMPOSER_AUTH=" + string(pretty.Ugly(data))}
}

// requireSnapshot remembers one require entry of the host composer.json.
type requireSnapshot struct {
	file   string
	path   string
	raw    string
	exists bool
	ok     bool
}

func (c *Composer) snapshot(section, name string) requireSnapshot {
	s := requireSnapshot{file: c.ManifestPath(), path: section + "." + escapePath(name)}
	data, err := os.ReadFile(s.file)
	if err != nil {
		return s
	}
	s.ok = true
	if r := gjson.GetBytes(data, s.path); r.Exists() {
		s.exists = true
		s.raw = r.Raw
	}
	return s
}

// restore puts the entry back the way it was, touching nothing else.
func (s requireSnapshot) restore() error {
	if !s.ok {
		return nil
	}
	data, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	cur := gjson.GetBytes(data, s.path)

	var next []byte
	switch {
	case s.exists && cur.Raw == s.raw:
		return nil
	case s.exists:
		next, err = sjson.SetRawBytes(data, s.path, []byte(s.raw))
	case !cur.Exists():
		return nil
	default:
		next, err = sjson.DeleteBytes(data, s.path)
	}
	if err != nil {
		return fmt.Errorf("editing %s: %w", s.file, err)
	}
	info, err := os.Stat(s.file)
	if err != nil {
		return err
	}
	return os.WriteFile(s.file, next, info.Mode().Perm())
}

// escapePath escapes the characters gjson and sjson treat as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
