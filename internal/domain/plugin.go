// Package domain holds the plugin records and classification types shared by
// the registry, the hook executor and the install orchestrator.
package domain

import "time"

// Kind selects which install and uninstall pipeline applies to a plugin.
type Kind string

const (
	// KindBackendManaged plugins are installed through the backend dependency
	// manager; their files live in the host's shared dependency directory.
	KindBackendManaged Kind = "backend-managed"
	// KindSelfContained plugins are downloaded, extracted and hooked directly.
	KindSelfContained Kind = "self-contained"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindBackendManaged || k == KindSelfContained
}

// PluginType is the marketplace classification of a plugin.
type PluginType string

const (
	TypeLibrary          PluginType = "library"
	TypePlugin           PluginType = "plugin"
	TypeCatchadminPlugin PluginType = "catchadmin-plugin"
	TypeModule           PluginType = "module"
	TypeProject          PluginType = "project"
)

// AllTypes lists every known plugin type.
var AllTypes = []PluginType{TypeLibrary, TypePlugin, TypeCatchadminPlugin, TypeModule, TypeProject}

// ParsePluginType maps a type string to a PluginType. Unknown or empty
// strings are treated as libraries.
func ParsePluginType(s string) PluginType {
	for _, t := range AllTypes {
		if string(t) == s {
			return t
		}
	}
	return TypeLibrary
}

// Kind returns the pipeline kind for the type. Only libraries are handed to
// the backend dependency manager; everything else is installed by download.
func (t PluginType) Kind() Kind {
	if t == TypeLibrary {
		return KindBackendManaged
	}
	return KindSelfContained
}

// PluginRecord is one entry in the installed-plugin registry.
type PluginRecord struct {
	Name        string     `json:"name"`
	PluginID    string     `json:"pluginId"`
	Version     string     `json:"version"`
	Kind        Kind       `json:"kind"`
	Type        PluginType `json:"type,omitempty"`
	Path        string     `json:"path"`
	InstalledAt time.Time  `json:"installedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SameContent reports whether two records are equal ignoring timestamps.
func (r PluginRecord) SameContent(o PluginRecord) bool {
	return r.Name == o.Name &&
		r.PluginID == o.PluginID &&
		r.Version == o.Version &&
		r.Kind == o.Kind &&
		r.Type == o.Type &&
		r.Path == o.Path
}
