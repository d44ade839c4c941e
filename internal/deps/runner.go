// Package deps wraps the two external package managers: composer for backend
// packages and yarn for frontend packages. Commands are built here and run
// through a Runner so output can be streamed line by line to the caller.
package deps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/soyeahso/pluginctl/internal/logging"
)

// LineFunc receives raw process output, one line at a time.
type LineFunc func(line string)

// Command is an external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands and streams their combined output.
type Runner interface {
	Run(ctx context.Context, cmd Command, onLine LineFunc) error
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited %d", e.Command, e.Code)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	log *logging.Logger
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(log *logging.Logger) *ExecRunner {
	return &ExecRunner{log: log.Sub("exec")}
}

// Run starts the command and blocks until it exits. Stdout and stderr are
// merged so lines reach onLine in the order the process wrote them.
func (r *ExecRunner) Run(ctx context.Context, c Command, onLine LineFunc) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	r.log.Debug().Str("cmd", c.Name).Strs("args", c.Args).Str("dir", c.Dir).Msg("running command")

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("starting %s: %w", c.Name, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if onLine != nil {
			onLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		// keep draining so the child never blocks on a full pipe
		io.Copy(io.Discard, pr)
		r.log.Debug().Err(err).Msg("output scan stopped")
	}

	err := <-waitErr
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: c.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("%s: %w", c.Name, err)
}

// Exists reports whether a command is available in PATH.
func Exists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
