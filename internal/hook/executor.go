package hook

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// DeclarativeFile is the hook file looked up at the plugin root.
const DeclarativeFile = "hook.lua"

// Invoker is a hook callable resolved for a single phase. For gate phases a
// false result blocks the pipeline; notification phases ignore it.
type Invoker interface {
	Invoke(ctx context.Context, hc domain.InstallContext) (bool, error)
	Source() string
}

// form is one way a plugin can provide hooks. resolve returns a nil Invoker
// when the form has nothing for the phase.
type form interface {
	resolve(ctx context.Context, phase Phase) (Invoker, error)
}

// Executor loads hook sources for plugins.
type Executor struct {
	handlers *Handlers
	log      *logging.Logger
}

// NewExecutor creates an executor resolving Go handlers from handlers.
func NewExecutor(handlers *Handlers, log *logging.Logger) *Executor {
	if handlers == nil {
		handlers = Default
	}
	return &Executor{handlers: handlers, log: log.Sub("hook")}
}

// Load reads the hook sources of the plugin in dir. m may be nil when the
// plugin has no manifest, in which case only the declarative form applies.
func (e *Executor) Load(dir string, m *manifest.Manifest) (*Set, error) {
	set := &Set{dir: dir, log: e.log}

	if m != nil && m.Hook != "" {
		structured, err := e.structured(dir, m.Hook)
		if err != nil {
			return nil, err
		}
		if structured != nil {
			set.forms = append(set.forms, structured)
		}
	}

	path := filepath.Join(dir, DeclarativeFile)
	code, err := os.ReadFile(path)
	switch {
	case err == nil:
		set.forms = append(set.forms, luaDeclarative{luaScript{path: path, dir: dir, code: string(code), log: e.log}})
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return set, nil
}

func (e *Executor) structured(dir, name string) (form, error) {
	if h := e.handlers.Get(name); h != nil {
		return goHandler{name: name, handler: h}, nil
	}

	rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	if filepath.Ext(rel) != ".lua" {
		rel += ".lua"
	}
	path := filepath.Join(dir, rel)
	code, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Debug().Str("hook", name).Msg("structured hook declared but not found")
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return luaModule{luaScript{path: path, dir: dir, code: string(code), log: e.log}}, nil
}

// Set holds the hook forms of one plugin, in lookup order.
type Set struct {
	dir   string
	forms []form
	log   *logging.Logger
}

// Empty reports whether the plugin ships no hooks at all.
func (s *Set) Empty() bool { return len(s.forms) == 0 }

// Lookup finds the callable for phase. The first form that defines it wins;
// a nil Invoker means no form does. Callers must Release the invoker.
func (s *Set) Lookup(ctx context.Context, phase Phase) (Invoker, error) {
	for _, f := range s.forms {
		inv, err := f.resolve(ctx, phase)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			return inv, nil
		}
	}
	return nil, nil
}

// Run resolves and invokes the hook for phase. Any error is a *Error.
func (s *Set) Run(ctx context.Context, phase Phase, hc domain.InstallContext) (Outcome, error) {
	if s == nil {
		return NotFound, nil
	}

	inv, err := s.Lookup(ctx, phase)
	if err != nil {
		return NotFound, err
	}
	if inv == nil {
		s.log.Debug().Str("phase", phase.String()).Str("dir", s.dir).Msg("no hook for phase")
		return NotFound, nil
	}
	defer Release(inv)

	s.log.Debug().Str("phase", phase.String()).Str("source", inv.Source()).Msg("running hook")
	allowed, err := inv.Invoke(ctx, hc)
	if err != nil {
		return NotFound, &Error{Phase: phase, Source: inv.Source(), Err: err}
	}
	if phase.IsGate() && !allowed {
		return Blocked, nil
	}
	return Allowed, nil
}

// Release frees any interpreter held by inv.
func Release(inv Invoker) {
	if c, ok := inv.(io.Closer); ok {
		c.Close()
	}
}
