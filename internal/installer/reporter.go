package installer

import (
	"sync"

	"github.com/soyeahso/pluginctl/internal/logging"
)

// Progress steps.
const (
	StepDownload = "download"
	StepExtract  = "extract"
	StepResolve  = "resolve"
	StepComposer = "composer"
	StepNpm      = "npm"
	StepCheck    = "check"
	StepCleanup  = "cleanup"
)

// Level is the severity of a log line sent to the caller.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Reporter receives step progress and log lines while a pipeline runs.
type Reporter interface {
	OnProgress(step string, percent int, message string)
	OnLog(message string, level Level)
}

// ReporterFuncs adapts two functions to a Reporter. Nil fields are skipped.
type ReporterFuncs struct {
	Progress func(step string, percent int, message string)
	Log      func(message string, level Level)
}

func (f ReporterFuncs) OnProgress(step string, percent int, message string) {
	if f.Progress != nil {
		f.Progress(step, percent, message)
	}
}

func (f ReporterFuncs) OnLog(message string, level Level) {
	if f.Log != nil {
		f.Log(message, level)
	}
}

// reporter wraps the caller's Reporter. It keeps percentages within 0..100
// and non-decreasing per step, and mirrors every log line into the
// structured log.
type reporter struct {
	out    Reporter
	log    *logging.Logger
	plugin string

	mu   sync.Mutex
	last map[string]int
	step string
}

func newReporter(out Reporter, log *logging.Logger, plugin string) *reporter {
	if out == nil {
		out = ReporterFuncs{}
	}
	return &reporter{out: out, log: log, plugin: plugin, last: make(map[string]int)}
}

func (r *reporter) progress(step string, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	if prev, ok := r.last[step]; ok && percent < prev {
		percent = prev
	}
	r.last[step] = percent
	r.step = step
	r.mu.Unlock()

	r.log.Debug().Str("package", r.plugin).Str("step", step).Int("percent", percent).Msg(message)
	r.out.OnProgress(step, percent, message)
}

func (r *reporter) logf(level Level, message string) {
	r.mu.Lock()
	step := r.step
	r.mu.Unlock()

	var ev = r.log.Info()
	switch level {
	case LevelWarning:
		ev = r.log.Warn()
	case LevelError:
		ev = r.log.Error()
	}
	ev.Str("package", r.plugin).Str("step", step).Str("level", string(level)).Msg(message)
	r.out.OnLog(message, level)
}

func (r *reporter) info(msg string)    { r.logf(LevelInfo, msg) }
func (r *reporter) success(msg string) { r.logf(LevelSuccess, msg) }
func (r *reporter) warn(msg string)    { r.logf(LevelWarning, msg) }
func (r *reporter) fail(msg string)    { r.logf(LevelError, msg) }

// lines forwards package-manager output as info log lines.
func (r *reporter) lines(line string) { r.info(line) }
