package deps

import (
	"context"
	"sync"
)

// fakeRunner records commands and replays scripted output.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	output  map[string][]string
	fail    map[string]error
	onStart func(Command)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{output: map[string][]string{}, fail: map[string]error{}}
}

func (f *fakeRunner) Run(_ context.Context, cmd Command, onLine LineFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.onStart != nil {
		f.onStart(cmd)
	}
	key := cmd.String()
	for _, line := range f.output[key] {
		if onLine != nil {
			onLine(line)
		}
	}
	return f.fail[key]
}
