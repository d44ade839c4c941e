// Package manifest reads the plugin manifest (composer.json) and the frontend
// dependency manifest (package.json). Dependency lists keep the order in which
// they are declared so installs run in a predictable sequence.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// File names looked up inside a plugin directory.
const (
	FileName         = "composer.json"
	FrontendFileName = "package.json"
)

// ErrNotFound is returned when a directory carries no manifest.
var ErrNotFound = errors.New("manifest not found")

// Dependency is one name → version-constraint entry.
type Dependency struct {
	Name       string
	Constraint string
}

func (d Dependency) String() string {
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + ":" + d.Constraint
}

// Manifest is the subset of a plugin's composer.json the installer uses.
type Manifest struct {
	Name       string
	Title      string
	Version    string
	Type       string
	Require    []Dependency
	RequireDev []Dependency
	Hook       string // extra.hook
	Module     string // extra.module

	// Raw is the whole document, handed to hooks as composer_data.
	Raw map[string]any
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid manifest JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("manifest must be a JSON object")
	}

	m := &Manifest{
		Name:       doc.Get("name").String(),
		Title:      doc.Get("title").String(),
		Version:    doc.Get("version").String(),
		Type:       doc.Get("type").String(),
		Require:    dependencies(doc.Get("require")),
		RequireDev: dependencies(doc.Get("require-dev")),
		Hook:       doc.Get("extra.hook").String(),
		Module:     doc.Get("extra.module").String(),
	}
	if raw, ok := doc.Value().(map[string]any); ok {
		m.Raw = raw
	}
	return m, nil
}

// Load reads <dir>/composer.json. A missing file yields ErrNotFound.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Exists reports whether dir contains a plugin manifest.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil && !info.IsDir()
}

// DisplayName returns the title, falling back to the package name.
func (m *Manifest) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Name != "" {
		return m.Name
	}
	return "unknown"
}

// InstallableRequire returns require entries minus platform pseudo-packages.
func (m *Manifest) InstallableRequire() []Dependency {
	return withoutPlatform(m.Require)
}

// InstallableRequireDev returns require-dev entries minus platform pseudo-packages.
func (m *Manifest) InstallableRequireDev() []Dependency {
	return withoutPlatform(m.RequireDev)
}

// IsPlatformDependency reports whether name describes the host runtime or one
// of its extensions rather than an installable package.
func IsPlatformDependency(name string) bool {
	name = strings.ToLower(name)
	switch name {
	case "php", "hhvm", "composer", "composer-plugin-api", "composer-runtime-api":
		return true
	}
	return strings.HasPrefix(name, "php-") ||
		strings.HasPrefix(name, "ext-") ||
		strings.HasPrefix(name, "lib-")
}

func withoutPlatform(deps []Dependency) []Dependency {
	out := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		if IsPlatformDependency(d.Name) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func dependencies(section gjson.Result) []Dependency {
	if !section.IsObject() {
		return nil
	}
	var deps []Dependency
	section.ForEach(func(key, value gjson.Result) bool {
		deps = append(deps, Dependency{Name: key.String(), Constraint: value.String()})
		return true
	})
	return deps
}
