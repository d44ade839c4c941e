package domain

// InstallContext is the pipeline-scoped state handed to plugin hooks. It is
// created when a pipeline starts and discarded when it ends.
type InstallContext struct {
	PluginPath string
	Manifest   map[string]any
	Version    string
	PluginID   string
	Type       PluginType
	Kind       Kind
	Module     string
}

// Values flattens the context into the key/value form hooks receive.
func (c InstallContext) Values() map[string]any {
	v := map[string]any{
		"plugin_path":   c.PluginPath,
		"composer_data": c.Manifest,
		"version":       c.Version,
		"plugin_id":     c.PluginID,
		"type":          string(c.Type),
		"kind":          string(c.Kind),
	}
	if c.Module != "" {
		v["module"] = c.Module
	} else {
		v["module"] = nil
	}
	return v
}
