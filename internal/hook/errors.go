package hook

import "fmt"

// Error reports a hook that raised while running. It is always fatal to the
// pipeline, unlike a gate returning false.
type Error struct {
	Phase  Phase
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hook %s (%s): %v", e.Phase, e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
