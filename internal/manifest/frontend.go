package manifest

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Frontend is the dependency section of a package.json.
type Frontend struct {
	Dependencies    []Dependency
	DevDependencies []Dependency
}

// Empty reports whether there is nothing to install.
func (f *Frontend) Empty() bool {
	return len(f.Dependencies) == 0 && len(f.DevDependencies) == 0
}

// ParseFrontend decodes a package.json document. Dependency sections are
// optional but must be objects when present.
func ParseFrontend(data []byte) (*Frontend, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid package.json")
	}
	doc := gjson.ParseBytes(data)
	for _, key := range []string{"dependencies", "devDependencies"} {
		if v := doc.Get(key); v.Exists() && !v.IsObject() {
			return nil, fmt.Errorf("package.json field %q must be an object", key)
		}
	}
	return &Frontend{
		Dependencies:    dependencies(doc.Get("dependencies")),
		DevDependencies: dependencies(doc.Get("devDependencies")),
	}, nil
}

// LoadFrontend reads and parses the package.json at path.
func LoadFrontend(path string) (*Frontend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := ParseFrontend(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
