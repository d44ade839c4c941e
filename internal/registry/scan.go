package registry

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// ScanResult summarizes a recovery scan.
type ScanResult struct {
	Added     []string
	Corrected []string
	Unchanged []string
}

// Touched returns the number of records written by the scan.
func (s ScanResult) Touched() int {
	return len(s.Added) + len(s.Corrected)
}

// Rescan rebuilds records from the plugin manifests found on disk. It looks at
// every path already recorded, then one and two levels below installPath, and
// corrects version and path drift. The first manifest found for a name wins:
// a recorded path beats any other copy, and among the rest the newest dated
// install directory is preferred. Unknown plugins are added as self-contained.
func (r *Registry) Rescan(installPath string) (ScanResult, error) {
	var res ScanResult

	existing, err := r.List()
	if err != nil {
		return res, err
	}
	var dirs []string
	for _, name := range sortedNames(existing) {
		if p := existing[name].Path; p != "" && manifest.Exists(p) {
			dirs = append(dirs, p)
		}
	}

	found, err := manifestDirs(installPath)
	if err != nil {
		return res, err
	}
	dirs = append(dirs, found...)

	seen := make(map[string]bool)
	for _, dir := range dedupe(dirs) {
		m, err := manifest.Load(dir)
		if err != nil {
			r.log.Warn().Err(err).Str("dir", dir).Msg("skipping unreadable manifest")
			continue
		}
		if m.Name == "" || seen[m.Name] {
			continue
		}
		seen[m.Name] = true

		prev, known := existing[m.Name]
		if known && prev.Version == m.Version && prev.Path == dir {
			res.Unchanged = append(res.Unchanged, m.Name)
			continue
		}

		rec := prev
		if !known {
			rec = domain.PluginRecord{
				Name: m.Name,
				Kind: domain.KindSelfContained,
				Type: domain.TypeCatchadminPlugin,
			}
		}
		if known && prev.Version != m.Version {
			r.logDrift(m.Name, prev.Version, m.Version)
		}
		rec.Version = m.Version
		rec.Path = dir

		if _, err := r.Upsert(rec); err != nil {
			return res, fmt.Errorf("saving %s: %w", m.Name, err)
		}
		if known {
			res.Corrected = append(res.Corrected, m.Name)
		} else {
			res.Added = append(res.Added, m.Name)
		}
	}

	r.log.Info().
		Int("added", len(res.Added)).
		Int("corrected", len(res.Corrected)).
		Int("unchanged", len(res.Unchanged)).
		Msg("registry rescanned")
	return res, nil
}

func (r *Registry) logDrift(name, recorded, found string) {
	ev := r.log.Info().Str("plugin", name).Str("recorded", recorded).Str("found", found)
	rv, err1 := semver.NewVersion(recorded)
	fv, err2 := semver.NewVersion(found)
	if err1 == nil && err2 == nil && fv.LessThan(rv) {
		ev.Msg("on-disk version is older than recorded")
		return
	}
	ev.Msg("correcting recorded version")
}

func manifestDirs(root string) ([]string, error) {
	var dirs []string
	for _, pattern := range []string{"*", filepath.Join("*", "*")} {
		matches, err := filepath.Glob(filepath.Join(root, pattern, manifest.FileName))
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		for _, m := range matches {
			dirs = append(dirs, filepath.Dir(m))
		}
	}
	// date directories sort lexically, so newest first
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	return dirs, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = filepath.Clean(s)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
