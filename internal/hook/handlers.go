package hook

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/pluginctl/internal/domain"
)

// BeforeInstaller gates installation. Returning false blocks it.
type BeforeInstaller interface {
	BeforeInstall(ctx context.Context, hc domain.InstallContext) (bool, error)
}

// AfterInstaller is notified once installation completes.
type AfterInstaller interface {
	AfterInstall(ctx context.Context, hc domain.InstallContext) error
}

// BeforeUninstaller gates removal. Returning false blocks it.
type BeforeUninstaller interface {
	BeforeUninstall(ctx context.Context, hc domain.InstallContext) (bool, error)
}

// AfterUninstaller is notified once the plugin's files are gone.
type AfterUninstaller interface {
	AfterUninstall(ctx context.Context, hc domain.InstallContext) error
}

// Handlers maps extra.hook names to compiled-in Go handlers. A handler
// implements any subset of the phase interfaces above.
type Handlers struct {
	mu       sync.RWMutex
	handlers map[string]any
}

// NewHandlers creates an empty handler set.
func NewHandlers() *Handlers {
	return &Handlers{handlers: make(map[string]any)}
}

// Default is the process-wide handler set used by the CLI.
var Default = NewHandlers()

// Register adds h to the Default set.
func Register(name string, h any) error {
	return Default.Register(name, h)
}

// Register adds a handler under name.
func (hs *Handlers) Register(name string, h any) error {
	if !implementsAny(h) {
		return fmt.Errorf("hook handler %s implements no lifecycle method", name)
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()

	if _, exists := hs.handlers[name]; exists {
		return fmt.Errorf("hook handler already registered: %s", name)
	}
	hs.handlers[name] = h
	return nil
}

// Get returns the handler registered under name, or nil.
func (hs *Handlers) Get(name string) any {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.handlers[name]
}

// List returns the registered names in sorted order.
func (hs *Handlers) List() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	names := make([]string, 0, len(hs.handlers))
	for name := range hs.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func implementsAny(h any) bool {
	switch h.(type) {
	case BeforeInstaller, AfterInstaller, BeforeUninstaller, AfterUninstaller:
		return true
	}
	return false
}

// goHandler is the structured form backed by a registered Go value.
type goHandler struct {
	name    string
	handler any
}

func (g goHandler) resolve(_ context.Context, phase Phase) (Invoker, error) {
	var fn func(context.Context, domain.InstallContext) (bool, error)
	switch phase {
	case BeforeInstall:
		if h, ok := g.handler.(BeforeInstaller); ok {
			fn = h.BeforeInstall
		}
	case AfterInstall:
		if h, ok := g.handler.(AfterInstaller); ok {
			fn = notify(h.AfterInstall)
		}
	case BeforeUninstall:
		if h, ok := g.handler.(BeforeUninstaller); ok {
			fn = h.BeforeUninstall
		}
	case AfterUninstall:
		if h, ok := g.handler.(AfterUninstaller); ok {
			fn = notify(h.AfterUninstall)
		}
	}
	if fn == nil {
		return nil, nil
	}
	return funcInvoker{source: "handler " + g.name, fn: fn}, nil
}

func notify(fn func(context.Context, domain.InstallContext) error) func(context.Context, domain.InstallContext) (bool, error) {
	return func(ctx context.Context, hc domain.InstallContext) (bool, error) {
		return true, fn(ctx, hc)
	}
}

type funcInvoker struct {
	source string
	fn     func(context.Context, domain.InstallContext) (bool, error)
}

func (f funcInvoker) Invoke(ctx context.Context, hc domain.InstallContext) (bool, error) {
	return f.fn(ctx, hc)
}

func (f funcInvoker) Source() string { return f.source }
