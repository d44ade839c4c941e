// Package hook runs plugin-supplied lifecycle callbacks. A plugin may provide
// a structured handler (a registered Go handler or a Lua module named by the
// manifest's extra.hook) and a declarative hook.lua file; the structured form
// is tried first for each phase and the declarative form is the fallback.
package hook

// Phase is one of the four lifecycle points a hook can attach to.
type Phase int

const (
	BeforeInstall Phase = iota
	AfterInstall
	BeforeUninstall
	AfterUninstall
)

// AllPhases lists the phases in pipeline order.
var AllPhases = []Phase{BeforeInstall, AfterInstall, BeforeUninstall, AfterUninstall}

// String returns the structured method name for the phase.
func (p Phase) String() string {
	switch p {
	case BeforeInstall:
		return "beforeInstall"
	case AfterInstall:
		return "afterInstall"
	case BeforeUninstall:
		return "beforeUninstall"
	case AfterUninstall:
		return "afterUninstall"
	}
	return "unknown"
}

// IsGate reports whether a hook for this phase can block the pipeline.
func (p Phase) IsGate() bool {
	return p == BeforeInstall || p == BeforeUninstall
}

// declarativeKey is the key the phase is looked up under in hook.lua.
func (p Phase) declarativeKey() string {
	switch p {
	case BeforeInstall:
		return "before"
	case AfterInstall:
		return "after"
	}
	return p.String()
}

// Outcome is the result of running one phase.
type Outcome int

const (
	// NotFound means neither hook form defines the phase.
	NotFound Outcome = iota
	// Allowed means a hook ran and did not refuse.
	Allowed
	// Blocked means a gate hook returned false.
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not-found"
	case Allowed:
		return "allowed"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

// Proceed reports whether the pipeline may continue after this outcome.
func (o Outcome) Proceed() bool { return o != Blocked }
