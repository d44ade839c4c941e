package deps

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrAuth     = errors.New("authorization failed")
	ErrNotFound = errors.New("package not found")
)

// FailureKind classifies a failed package-manager run.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureAuth
	FailureNotFound
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuth:
		return "auth"
	case FailureNotFound:
		return "not-found"
	}
	return "generic"
}

// Error is a failed install or uninstall.
type Error struct {
	Kind    FailureKind
	Package string
	Command string
	Output  []string // last lines of output
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case FailureAuth:
		fmt.Fprintf(&b, "%s: %s", e.Package, ErrAuth)
	case FailureNotFound:
		fmt.Fprintf(&b, "%s: %s", e.Package, ErrNotFound)
	default:
		fmt.Fprintf(&b, "%s: %v", e.Package, e.Err)
	}
	if detail := e.detail(); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == FailureAuth
	case ErrNotFound:
		return e.Kind == FailureNotFound
	}
	return false
}

// detail picks the most telling output line.
func (e *Error) detail() string {
	for i := len(e.Output) - 1; i >= 0; i-- {
		if classifyLine(e.Output[i]) != FailureGeneric {
			return strings.TrimSpace(e.Output[i])
		}
	}
	if n := len(e.Output); n > 0 {
		return strings.TrimSpace(e.Output[n-1])
	}
	return ""
}

var (
	authMarkers = []string{
		"401", "403", "authentication required", "invalid credentials",
		"could not authenticate", "unauthorized", "forbidden",
	}
	notFoundMarkers = []string{
		"404", "could not find package", "could not find a matching version",
		"could not find a version", "no matching package found",
		"couldn't find package", "couldn't find any versions", "not found",
	}
)

func classifyLine(line string) FailureKind {
	l := strings.ToLower(line)
	for _, m := range authMarkers {
		if strings.Contains(l, m) {
			return FailureAuth
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(l, m) {
			return FailureNotFound
		}
	}
	return FailureGeneric
}

// classify returns the first specific kind found in output. Auth wins over
// not-found because registries answer 404 for private packages too.
func classify(output []string) FailureKind {
	kind := FailureGeneric
	for _, line := range output {
		switch classifyLine(line) {
		case FailureAuth:
			return FailureAuth
		case FailureNotFound:
			kind = FailureNotFound
		}
	}
	return kind
}

// tail collects the last n lines passed through it.
type tail struct {
	n     int
	lines []string
}

func newTail(n int) *tail { return &tail{n: n} }

func (t *tail) wrap(next LineFunc) LineFunc {
	return func(line string) {
		t.lines = append(t.lines, line)
		if len(t.lines) > t.n {
			t.lines = t.lines[len(t.lines)-t.n:]
		}
		if next != nil {
			next(line)
		}
	}
}

func newError(pkg string, cmd Command, out *tail, err error) *Error {
	return &Error{
		Kind:    classify(out.lines),
		Package: pkg,
		Command: cmd.String(),
		Output:  append([]string(nil), out.lines...),
		Err:     err,
	}
}
