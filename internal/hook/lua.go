package hook

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/logging"
	lua "github.com/yuin/gopher-lua"
)

// luaScript is a hook file whose source was read when the hook set was
// loaded. Evaluating from memory keeps after-uninstall hooks working once the
// plugin directory has been deleted.
type luaScript struct {
	path string
	dir  string
	code string
	log  *logging.Logger
}

// newState creates an interpreter for one hook invocation. Hooks run with
// full trust, so the complete standard library is available.
func (s luaScript) newState(ctx context.Context) *lua.LState {
	L := lua.NewState()
	L.SetContext(ctx)

	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		path := filepath.Join(s.dir, "?.lua") + ";" + lua.LVAsString(pkg.RawGetString("path"))
		pkg.RawSetString("path", lua.LString(path))
	}

	log := s.log
	L.SetGlobal("pluginctl", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			msg := L.CheckString(1)
			switch L.OptString(2, "info") {
			case "debug":
				log.Debug().Str("hook", s.path).Msg(msg)
			case "warning", "warn":
				log.Warn().Str("hook", s.path).Msg(msg)
			case "error":
				log.Error().Str("hook", s.path).Msg(msg)
			default:
				log.Info().Str("hook", s.path).Msg(msg)
			}
			return 0
		},
	}))
	return L
}

// eval runs the chunk and returns its first result.
func (s luaScript) eval(L *lua.LState) (ret lua.LValue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	fn, err := L.Load(strings.NewReader(s.code), "@"+s.path)
	if err != nil {
		return lua.LNil, err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return lua.LNil, err
	}
	ret = L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// luaModule is the structured form: a module returning a table of methods
// called as table:method(ctx).
type luaModule struct{ luaScript }

func (m luaModule) resolve(ctx context.Context, phase Phase) (Invoker, error) {
	L := m.newState(ctx)
	ret, err := m.eval(L)
	if err != nil {
		L.Close()
		m.log.Warn().Err(err).Str("hook", m.path).Msg("structured hook not loadable")
		return nil, nil
	}
	obj, ok := ret.(*lua.LTable)
	if !ok {
		L.Close()
		m.log.Warn().Str("hook", m.path).Str("got", ret.Type().String()).Msg("structured hook did not return a table")
		return nil, nil
	}
	fn, ok := obj.RawGetString(phase.String()).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, nil
	}
	return &luaInvoker{L: L, fn: fn, self: obj, source: m.path}, nil
}

// luaDeclarative is the fallback form: hook.lua returning a table of phase
// name to function.
type luaDeclarative struct{ luaScript }

func (d luaDeclarative) resolve(ctx context.Context, phase Phase) (Invoker, error) {
	L := d.newState(ctx)
	ret, err := d.eval(L)
	if err != nil {
		L.Close()
		return nil, &Error{Phase: phase, Source: d.path, Err: err}
	}
	table, ok := ret.(*lua.LTable)
	if !ok {
		L.Close()
		return nil, nil
	}
	fn, ok := table.RawGetString(phase.declarativeKey()).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, nil
	}
	return &luaInvoker{L: L, fn: fn, source: d.path}, nil
}

// luaInvoker owns the interpreter its function was resolved in.
type luaInvoker struct {
	L      *lua.LState
	fn     *lua.LFunction
	self   *lua.LTable
	source string
}

func (i *luaInvoker) Source() string { return i.source }

// Invoke calls the function and reports false only for a literal false result.
func (i *luaInvoker) Invoke(_ context.Context, hc domain.InstallContext) (allowed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	args := []lua.LValue{toLua(i.L, hc.Values())}
	if i.self != nil {
		args = append([]lua.LValue{i.self}, args...)
	}
	if err := i.L.CallByParam(lua.P{Fn: i.fn, NRet: 1, Protect: true}, args...); err != nil {
		return false, err
	}
	ret := i.L.Get(-1)
	i.L.Pop(1)
	return ret != lua.LFalse, nil
}

func (i *luaInvoker) Close() error {
	i.L.Close()
	return nil
}

// toLua converts decoded JSON-like values into Lua values. Map keys are set
// in sorted order so iteration inside hooks is stable between runs.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		t := L.NewTable()
		for idx, item := range val {
			t.RawSetInt(idx+1, toLua(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for idx, item := range val {
			t.RawSetInt(idx+1, lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, toLua(L, val[k]))
		}
		return t
	case map[string]string:
		t := L.NewTable()
		for k, s := range val {
			t.RawSetString(k, lua.LString(s))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
