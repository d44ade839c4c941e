package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/pluginctl/internal/archive"
	"github.com/soyeahso/pluginctl/internal/deps"
	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/events"
	"github.com/soyeahso/pluginctl/internal/hook"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/soyeahso/pluginctl/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type backendCall struct {
	op         string
	name       string
	constraint string
	dev        bool
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []backendCall
	fail  map[string]error
}

func (f *fakeBackend) Install(_ context.Context, name, constraint string, dev bool, onLine deps.LineFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{"install", name, constraint, dev})
	f.mu.Unlock()
	if onLine != nil {
		onLine("Installing " + name)
	}
	return f.fail[name]
}

func (f *fakeBackend) Uninstall(_ context.Context, name string, _ deps.LineFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{"uninstall", name, "", false})
	f.mu.Unlock()
	return f.fail["remove "+name]
}

func (f *fakeBackend) installed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.calls {
		if c.op == "install" {
			names = append(names, c.name)
		}
	}
	return names
}

type fakeFrontend struct {
	paths []string
	err   error
}

func (f *fakeFrontend) InstallFromManifest(_ context.Context, path string, _ deps.LineFunc) error {
	f.paths = append(f.paths, path)
	return f.err
}

type fakeDownloader struct {
	archives map[string]string
	err      error
}

func (f *fakeDownloader) Download(_ context.Context, pluginID, _ string, dest string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	src, ok := f.archives[pluginID]
	if !ok {
		return 0, fmt.Errorf("marketplace: plugin %s not found", pluginID)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return io.Copy(out, in)
}

type recorder struct {
	mu       sync.Mutex
	progress map[string][]int
	logs     []string
	levels   []Level
}

func newRecorder() *recorder { return &recorder{progress: map[string][]int{}} }

func (r *recorder) OnProgress(step string, percent int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[step] = append(r.progress[step], percent)
}

func (r *recorder) OnLog(message string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, message)
	r.levels = append(r.levels, level)
}

func (r *recorder) logged(level Level, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.logs {
		if r.levels[i] == level && strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// --- harness ---

type harness struct {
	svc        *Service
	reg        *registry.Registry
	backend    *fakeBackend
	frontend   *fakeFrontend
	downloader *fakeDownloader
	handlers   *hook.Handlers
	bus        *events.Bus
	events     []events.Payload
	root       string
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logging.New(nil, "silent")
	root := t.TempDir()

	h := &harness{
		reg:        registry.New(filepath.Join(root, "storage", "plugins.json"), log),
		backend:    &fakeBackend{fail: map[string]error{}},
		frontend:   &fakeFrontend{},
		downloader: &fakeDownloader{archives: map[string]string{}},
		handlers:   hook.NewHandlers(),
		bus:        events.NewBus(log),
		root:       root,
		now:        time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	h.bus.OnAll("test", func(_ context.Context, p events.Payload) error {
		h.events = append(h.events, p)
		return nil
	})

	h.svc = New(Options{
		InstallPath: filepath.Join(root, "plugins"),
		TempDir:     filepath.Join(root, "tmp"),
		VendorDir:   filepath.Join(root, "vendor"),
	}, Deps{
		Registry:   h.reg,
		Backend:    h.backend,
		Frontend:   h.frontend,
		Downloader: h.downloader,
		Hooks:      hook.NewExecutor(h.handlers, log),
		Events:     h.bus,
	}, log)
	h.svc.now = func() time.Time { return h.now }
	return h
}

// publish packs files into an archive served for pluginID. Files are nested
// under a wrapper directory the way marketplace archives are.
func (h *harness) publish(t *testing.T, pluginID string, files map[string]string) {
	t.Helper()
	src := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(src, "widgets-release", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	res, err := archive.Pack(src, filepath.Join(t.TempDir(), pluginID+".zip"), nil)
	require.NoError(t, err)
	h.downloader.archives[pluginID] = res.Path
}

func (h *harness) installDir(name string) string {
	return filepath.Join(h.root, "plugins", "2026-10-15", installDirName(name))
}

func (h *harness) assertScratchClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.root, "tmp"))
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

const widgetsManifest = `{
  "name": "acme/widgets",
  "title": "Acme Widgets",
  "version": "1.2.0",
  "type": "catchadmin-plugin",
  "require": {
    "php": ">=8.2",
    "acme/core": "^1.0"
  },
  "extra": {"module": "widgets"}
}`

func widgetsRequest() Request {
	return Request{Name: "acme/widgets", Version: "1.2.0", PluginID: "42", Type: "catchadmin-plugin"}
}

// --- install: download path ---

func TestInstall_SelfContainedEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json":  widgetsManifest,
		"src/Widget.php": "<?php",
	})
	rep := newRecorder()

	rec, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/core"}, h.backend.installed())
	assert.Equal(t, "^1.0", h.backend.calls[0].constraint)

	stored, err := h.reg.LookupByName("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", stored.Version)
	assert.Equal(t, "42", stored.PluginID)
	assert.Equal(t, domain.KindSelfContained, stored.Kind)
	assert.Equal(t, h.installDir("acme/widgets"), stored.Path)
	assert.Equal(t, rec.Path, stored.Path)

	_, err = os.Stat(filepath.Join(stored.Path, "src", "Widget.php"))
	assert.NoError(t, err)
	h.assertScratchClean(t)
	assert.True(t, rep.logged(LevelSuccess, "acme/widgets 1.2.0 installed"))
}

func TestInstall_ProgressIsMonotonic(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": `{"name": "acme/widgets", "require": {"a/one": "*", "a/two": "*", "a/three": "*"}}`,
		"package.json":  `{"dependencies": {"vue": "^3.4"}}`,
	})
	rep := newRecorder()

	_, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)

	for _, step := range []string{StepDownload, StepExtract, StepResolve, StepCheck, StepComposer, StepNpm, StepCleanup} {
		seq := rep.progress[step]
		require.NotEmpty(t, seq, step)
		for i := 1; i < len(seq); i++ {
			assert.GreaterOrEqual(t, seq[i], seq[i-1], step)
		}
		assert.Equal(t, 100, seq[len(seq)-1], step)
	}
	assert.Equal(t, []int{0, 33, 66, 100}, rep.progress[StepComposer])
	assert.Len(t, h.frontend.paths, 1)
}

func TestInstall_DependencyFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest})
	h.backend.fail["acme/core"] = &deps.Error{Kind: deps.FailureNotFound, Package: "acme/core", Err: errors.New("exit 1")}
	rep := newRecorder()

	_, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "dependency acme/core:^1.0 failed"))

	ok, err := h.reg.IsInstalled("acme/widgets")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstall_DevDependencies(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": `{
  "name": "acme/widgets",
  "require": {"php": ">=8.2", "acme/core": "^1.0"},
  "require-dev": {"ext-xdebug": "*", "acme/testkit": "^2.0"}
}`,
	})
	rep := newRecorder()

	_, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)

	assert.Equal(t, []backendCall{
		{"install", "acme/core", "^1.0", false},
		{"install", "acme/testkit", "^2.0", true},
	}, h.backend.calls)
	assert.Equal(t, []int{0, 50, 100}, rep.progress[StepComposer])
}

func TestInstall_DevDependencyFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": `{"name": "acme/widgets", "require-dev": {"acme/testkit": "^2.0"}}`,
	})
	h.backend.fail["acme/testkit"] = errors.New("exit 1")
	rep := newRecorder()

	_, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "dependency acme/testkit:^2.0 failed"))
}

func TestInstall_UnreadableManifestIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"composer.json": "{broken", "hook.lua": "return {}"})
	rep := newRecorder()

	rec, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "manifest unreadable"))
	assert.Empty(t, h.backend.calls)
	assert.Equal(t, "1.2.0", rec.Version)
}

func TestInstall_FrontendFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest, "package.json": `{"dependencies": {"vue": "^3"}}`})
	h.frontend.err = errors.New("yarn exited 1")
	rep := newRecorder()

	_, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "frontend dependencies failed"))
}

func TestInstall_MissingManifestIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"hook.lua": "return {}", "README.md": "hi"})
	rep := newRecorder()

	rec, err := h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "manifest not found"))
	assert.Empty(t, h.backend.calls)
	assert.Equal(t, "1.2.0", rec.Version)
}

func TestInstall_GateBlocked(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": widgetsManifest,
		"hook.lua":      `return { before = function(ctx) return false end }`,
	})

	_, err := h.svc.Install(context.Background(), widgetsRequest(), newRecorder())
	require.Error(t, err)

	var failed *InstallFailedError
	require.True(t, errors.As(err, &failed))
	assert.True(t, errors.Is(err, ErrGateBlocked))
	assert.Contains(t, err.Error(), "pre-install check failed")

	ok, err := h.reg.IsInstalled("acme/widgets")
	require.NoError(t, err)
	assert.False(t, ok)
	_, statErr := os.Stat(h.installDir("acme/widgets"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, h.backend.calls)
	h.assertScratchClean(t)
}

func TestInstall_GateSeesContext(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": widgetsManifest,
		"hook.lua": `return { before = function(ctx)
			return ctx.version == "1.2.0" and ctx.plugin_id == "42" and ctx.module == "widgets"
		end }`,
	})

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
}

func TestInstall_AfterInstallErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": widgetsManifest,
		"hook.lua":      `return { after = function() error("menu registration failed") end }`,
	})

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.Error(t, err)
	var hookErr *hook.Error
	assert.True(t, errors.As(err, &hookErr))

	ok, _ := h.reg.IsInstalled("acme/widgets")
	assert.False(t, ok)
	_, statErr := os.Stat(h.installDir("acme/widgets"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_DownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.downloader.err = errors.New("connection reset")

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	var failed *InstallFailedError
	require.True(t, errors.As(err, &failed))
	assert.Contains(t, err.Error(), "download failed")
	h.assertScratchClean(t)

	ok, _ := h.reg.IsInstalled("acme/widgets")
	assert.False(t, ok)
}

func TestInstall_ExtractionFailure(t *testing.T) {
	h := newHarness(t)
	bogus := filepath.Join(t.TempDir(), "bogus.zip")
	require.NoError(t, os.WriteFile(bogus, []byte("not a zip"), 0o644))
	h.downloader.archives["42"] = bogus

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
	h.assertScratchClean(t)
}

func TestInstall_ReplacesExistingDirectory(t *testing.T) {
	h := newHarness(t)
	stale := filepath.Join(h.installDir("acme/widgets"), "stale.php")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest})

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_DowngradeWarning(t *testing.T) {
	h := newHarness(t)
	_, err := h.reg.Upsert(domain.PluginRecord{Name: "acme/widgets", Version: "2.0.0", Kind: domain.KindSelfContained})
	require.NoError(t, err)
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest})
	rep := newRecorder()

	_, err = h.svc.Install(context.Background(), widgetsRequest(), rep)
	require.NoError(t, err)
	assert.True(t, rep.logged(LevelWarning, "downgrading acme/widgets from 2.0.0 to 1.2.0"))
}

func TestInstall_RequiresPluginID(t *testing.T) {
	h := newHarness(t)
	req := widgetsRequest()
	req.PluginID = ""

	_, err := h.svc.Install(context.Background(), req, nil)
	var failed *InstallFailedError
	assert.True(t, errors.As(err, &failed))
}

// --- install: backend-managed path ---

func TestInstall_BackendManaged(t *testing.T) {
	h := newHarness(t)
	vendorPkg := filepath.Join(h.root, "vendor", "acme", "lib", "package.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(vendorPkg), 0o755))
	require.NoError(t, os.WriteFile(vendorPkg, []byte(`{"dependencies": {"vue": "^3"}}`), 0o644))

	rec, err := h.svc.Install(context.Background(), Request{Name: "acme/lib", Version: "^2.1", Type: "library"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []backendCall{{"install", "acme/lib", "^2.1", false}}, h.backend.calls)
	assert.Equal(t, []string{vendorPkg}, h.frontend.paths)
	assert.Equal(t, domain.KindBackendManaged, rec.Kind)
	assert.Empty(t, rec.Path)
}

func TestInstall_BackendManagedFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.backend.fail["acme/private"] = &deps.Error{Kind: deps.FailureAuth, Package: "acme/private", Err: errors.New("exit 1")}

	_, err := h.svc.Install(context.Background(), Request{Name: "acme/private", Version: "^1.0", Type: "library"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, deps.ErrAuth))

	ok, _ := h.reg.IsInstalled("acme/private")
	assert.False(t, ok)
}

func TestInstall_UnknownTypeIsBackendManaged(t *testing.T) {
	h := newHarness(t)
	rec, err := h.svc.Install(context.Background(), Request{Name: "acme/thing", Version: "1.0.0", Type: "mystery"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.KindBackendManaged, rec.Kind)
	assert.Equal(t, domain.TypeLibrary, rec.Type)
}

// --- uninstall ---

type uninstallSpy struct {
	allow           bool
	dirGoneAtNotify bool
	notified        bool
}

func (u *uninstallSpy) BeforeUninstall(_ context.Context, hc domain.InstallContext) (bool, error) {
	return u.allow, nil
}

func (u *uninstallSpy) AfterUninstall(_ context.Context, hc domain.InstallContext) error {
	u.notified = true
	_, err := os.Stat(hc.PluginPath)
	u.dirGoneAtNotify = os.IsNotExist(err)
	return nil
}

func installWithSpy(t *testing.T, h *harness, spy *uninstallSpy) domain.PluginRecord {
	t.Helper()
	require.NoError(t, h.handlers.Register("Acme\\Widgets\\Hook", spy))
	h.publish(t, "42", map[string]string{
		"composer.json": `{"name": "acme/widgets", "version": "1.2.0", "extra": {"hook": "Acme\\Widgets\\Hook"}}`,
	})
	rec, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
	return rec
}

func TestUninstall_DeletePath(t *testing.T) {
	h := newHarness(t)
	spy := &uninstallSpy{allow: true}
	rec := installWithSpy(t, h, spy)

	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/widgets", nil))

	ok, err := h.reg.IsInstalled("acme/widgets")
	require.NoError(t, err)
	assert.False(t, ok)
	_, statErr := os.Stat(rec.Path)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, spy.notified)
	assert.True(t, spy.dirGoneAtNotify)
}

func TestUninstall_GateBlocked(t *testing.T) {
	h := newHarness(t)
	spy := &uninstallSpy{allow: false}
	rec := installWithSpy(t, h, spy)
	before, err := h.reg.LookupByName("acme/widgets")
	require.NoError(t, err)

	err = h.svc.Uninstall(context.Background(), "acme/widgets", nil)
	require.Error(t, err)
	var failed *UninstallFailedError
	require.True(t, errors.As(err, &failed))
	assert.True(t, errors.Is(err, ErrGateBlocked))
	assert.Contains(t, err.Error(), "pre-uninstall check failed")

	after, err := h.reg.LookupByName("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, statErr := os.Stat(filepath.Join(rec.Path, "composer.json"))
	assert.NoError(t, statErr)
	assert.False(t, spy.notified)
}

func TestUninstall_AfterHookFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": widgetsManifest,
		"hook.lua":      `return { afterUninstall = function() error("cache flush failed") end }`,
	})
	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
	rep := newRecorder()

	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/widgets", rep))
	assert.True(t, rep.logged(LevelWarning, "cache flush failed"))
	ok, _ := h.reg.IsInstalled("acme/widgets")
	assert.False(t, ok)
}

func TestUninstall_UnreadableManifest(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{
		"composer.json": widgetsManifest,
		"hook.lua":      `return { beforeUninstall = function(ctx) return ctx.version == "1.2.0" end }`,
	})
	rec, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(rec.Path, "composer.json"), []byte("{broken"), 0o644))
	rep := newRecorder()

	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/widgets", rep))
	assert.True(t, rep.logged(LevelWarning, "manifest unreadable"))

	ok, err := h.reg.IsInstalled("acme/widgets")
	require.NoError(t, err)
	assert.False(t, ok)
	_, statErr := os.Stat(rec.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUninstall_NotInstalled(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Uninstall(context.Background(), "acme/ghost", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInstalled))
	assert.Empty(t, h.backend.calls)
}

func TestUninstall_RepeatIsHarmless(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest})
	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)

	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/widgets", nil))
	err = h.svc.Uninstall(context.Background(), "acme/widgets", nil)
	assert.True(t, errors.Is(err, ErrNotInstalled))

	ok, _ := h.reg.IsInstalled("acme/widgets")
	assert.False(t, ok)
}

func TestUninstall_BackendManaged(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Install(context.Background(), Request{Name: "acme/lib", Version: "^2.1", Type: "library"}, nil)
	require.NoError(t, err)

	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/lib", nil))
	assert.Equal(t, backendCall{"uninstall", "acme/lib", "", false}, h.backend.calls[len(h.backend.calls)-1])
	ok, _ := h.reg.IsInstalled("acme/lib")
	assert.False(t, ok)
}

func TestUninstall_BackendFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Install(context.Background(), Request{Name: "acme/lib", Version: "^2.1", Type: "library"}, nil)
	require.NoError(t, err)
	h.backend.fail["remove acme/lib"] = errors.New("composer remove exited 1")

	err = h.svc.Uninstall(context.Background(), "acme/lib", nil)
	require.Error(t, err)
	ok, _ := h.reg.IsInstalled("acme/lib")
	assert.True(t, ok)
}

// --- events ---

func TestEvents_OneTerminalPerRun(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "42", map[string]string{"composer.json": widgetsManifest})

	_, err := h.svc.Install(context.Background(), widgetsRequest(), nil)
	require.NoError(t, err)
	require.NoError(t, h.svc.Uninstall(context.Background(), "acme/widgets", nil))
	_ = h.svc.Uninstall(context.Background(), "acme/widgets", nil)

	terminal := map[string]int{}
	for _, e := range h.events {
		if e.Terminal() {
			terminal[e.RunID]++
		}
	}
	assert.Len(t, terminal, 3)
	for id, n := range terminal {
		assert.Equal(t, 1, n, id)
	}
	assert.Equal(t, events.InstallStarted, h.events[0].Event)
	assert.Equal(t, events.InstallCompleted, h.events[1].Event)
	assert.Equal(t, h.events[0].RunID, h.events[1].RunID)
	assert.Equal(t, events.UninstallFailed, h.events[len(h.events)-1].Event)
}

func TestReporter_ClampsPercent(t *testing.T) {
	rec := newRecorder()
	r := newReporter(rec, logging.New(nil, "silent"), "acme/widgets")
	r.progress(StepComposer, 50, "")
	r.progress(StepComposer, 30, "")
	r.progress(StepComposer, 150, "")
	r.progress(StepNpm, -5, "")
	assert.Equal(t, []int{50, 50, 100}, rec.progress[StepComposer])
	assert.Equal(t, []int{0}, rec.progress[StepNpm])
}

func TestInstallDirName(t *testing.T) {
	assert.Equal(t, "acme-widgets", installDirName("acme/widgets"))
}
