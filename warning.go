package xdispatch

import "strings"

// WarningState controls how loudly the engine warns when a listener
// registers for a deprecated event type.
type WarningState int

const (
	// WarnDefault prints unless the type suppressed its warning via NoWarn.
	WarnDefault WarningState = iota
	// WarnOn always prints, and additionally logs the registration stack trace.
	WarnOn
	// WarnOff never prints.
	WarnOff
)

func (ws WarningState) String() string {
	switch ws {
	case WarnOn:
		return "ON"
	case WarnOff:
		return "OFF"
	default:
		return "DEFAULT"
	}
}

// printFor decides whether a deprecation warning should be emitted for the
// given type under this state.
func (ws WarningState) printFor(t *Type) bool {
	switch ws {
	case WarnOn:
		return true
	case WarnOff:
		return false
	default:
		return t == nil || t.warn
	}
}

// ParseWarningState maps a configuration string to a WarningState. It accepts
// the usual boolean spellings; unknown values report ok=false.
func ParseWarningState(s string) (WarningState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "t", "yes", "y":
		return WarnOn, true
	case "off", "false", "f", "no", "n":
		return WarnOff, true
	case "", "d", "default":
		return WarnDefault, true
	}
	return WarnDefault, false
}
