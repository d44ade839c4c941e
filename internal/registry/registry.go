// Package registry persists the set of installed plugins in a single
// pretty-printed JSON document keyed by plugin name.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/logging"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("plugin not found in registry")

// Registry is the durable record of installed plugins. The whole document is
// read on first access and cached; every mutation rewrites the file.
type Registry struct {
	path string
	log  *logging.Logger
	now  func() time.Time

	mu     sync.Mutex
	cache  map[string]domain.PluginRecord
	loaded bool
}

// New creates a registry backed by the file at path. The file is not read
// until the first operation.
func New(path string, log *logging.Logger) *Registry {
	return &Registry{
		path: path,
		log:  log.Sub("registry"),
		now:  time.Now,
	}
}

// Path returns the backing file location.
func (r *Registry) Path() string { return r.path }

// LookupByName returns the record for name.
func (r *Registry) LookupByName(name string) (domain.PluginRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return domain.PluginRecord{}, err
	}
	rec, ok := r.cache[name]
	if !ok {
		return domain.PluginRecord{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return rec, nil
}

// LookupByID returns the first record carrying the marketplace id. Names are
// scanned in sorted order so duplicates resolve deterministically.
func (r *Registry) LookupByID(pluginID string) (domain.PluginRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return domain.PluginRecord{}, err
	}
	for _, name := range sortedNames(r.cache) {
		if rec := r.cache[name]; rec.PluginID == pluginID {
			return rec, nil
		}
	}
	return domain.PluginRecord{}, fmt.Errorf("id %s: %w", pluginID, ErrNotFound)
}

// IsInstalled reports whether a record exists for name.
func (r *Registry) IsInstalled(name string) (bool, error) {
	_, err := r.LookupByName(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Upsert inserts or fully replaces the record keyed by rec.Name. InstalledAt
// is set on first insert and kept afterwards; UpdatedAt never moves backwards.
func (r *Registry) Upsert(rec domain.PluginRecord) (domain.PluginRecord, error) {
	if rec.Name == "" {
		return domain.PluginRecord{}, errors.New("registry: record name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return domain.PluginRecord{}, err
	}

	now := r.now().UTC()
	if prev, ok := r.cache[rec.Name]; ok {
		rec.InstalledAt = prev.InstalledAt
		if now.Before(prev.UpdatedAt) {
			now = prev.UpdatedAt
		}
		rec.UpdatedAt = now
	} else {
		rec.InstalledAt = now
		rec.UpdatedAt = now
	}

	next := cloneWith(r.cache, rec.Name, &rec)
	if err := r.saveLocked(next); err != nil {
		return domain.PluginRecord{}, err
	}
	r.cache = next

	r.log.Debug().Str("plugin", rec.Name).Str("version", rec.Version).Msg("record saved")
	return rec, nil
}

// Update applies fn to an existing record and saves it.
func (r *Registry) Update(name string, fn func(*domain.PluginRecord)) (domain.PluginRecord, error) {
	rec, err := r.LookupByName(name)
	if err != nil {
		return domain.PluginRecord{}, err
	}
	fn(&rec)
	rec.Name = name
	return r.Upsert(rec)
}

// Remove deletes the record for name. Removing an unknown name succeeds.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return err
	}
	if _, ok := r.cache[name]; !ok {
		return nil
	}

	next := cloneWith(r.cache, name, nil)
	if err := r.saveLocked(next); err != nil {
		return err
	}
	r.cache = next

	r.log.Debug().Str("plugin", name).Msg("record removed")
	return nil
}

// List returns a copy of every record keyed by name.
func (r *Registry) List() (map[string]domain.PluginRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	return cloneWith(r.cache, "", nil), nil
}

// Names returns the installed plugin names in sorted order.
func (r *Registry) Names() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	return sortedNames(r.cache), nil
}

// ClearCache drops the in-memory copy so the next access rereads the file.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
	r.loaded = false
}

// Clear deletes the backing file and empties the cache.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing registry file: %w", err)
	}
	r.cache = make(map[string]domain.PluginRecord)
	r.loaded = true
	r.log.Info().Str("path", r.path).Msg("registry cleared")
	return nil
}

func (r *Registry) loadLocked() error {
	if r.loaded {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.cache = make(map[string]domain.PluginRecord)
			r.loaded = true
			return nil
		}
		return fmt.Errorf("reading registry: %w", err)
	}

	records := make(map[string]domain.PluginRecord)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parsing registry %s: %w", r.path, err)
		}
	}
	for name, rec := range records {
		if rec.Name == "" {
			rec.Name = name
			records[name] = rec
		}
	}

	r.cache = records
	r.loaded = true
	return nil
}

// saveLocked writes the full document to a temp file beside the target and
// renames it into place.
func (r *Registry) saveLocked(records map[string]domain.PluginRecord) error {
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}

// cloneWith copies m, then sets key to *rec or deletes key when rec is nil.
// An empty key leaves the copy untouched.
func cloneWith(m map[string]domain.PluginRecord, key string, rec *domain.PluginRecord) map[string]domain.PluginRecord {
	out := make(map[string]domain.PluginRecord, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if key == "" {
		return out
	}
	if rec == nil {
		delete(out, key)
	} else {
		out[key] = *rec
	}
	return out
}

func sortedNames(m map[string]domain.PluginRecord) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
