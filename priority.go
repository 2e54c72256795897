package xdispatch

import "strings"

// Priority orders listener invocation for one event type: lower slots run
// first, Monitor runs last and should only observe.
//
// The zero value is deliberately not a valid priority so an unset
// Registration defaults to Normal.
type Priority int

const (
	// Lowest runs first, for early modifications before other handlers.
	Lowest Priority = iota + 1
	// Low runs after Lowest, for non-critical modifications.
	Low
	// Normal is the default priority.
	Normal
	// High runs after Normal.
	High
	// Highest is the last priority that should still modify the event.
	Highest
	// Monitor runs last and must only observe, never modify.
	Monitor
)

var priorityNames = [...]string{"LOWEST", "LOW", "NORMAL", "HIGH", "HIGHEST", "MONITOR"}

// Valid reports whether p is one of the six defined priorities.
func (p Priority) Valid() bool { return p >= Lowest && p <= Monitor }

// Slot returns the numeric execution-order slot, 0 (Lowest) through 5 (Monitor).
func (p Priority) Slot() int { return int(p) - 1 }

func (p Priority) String() string {
	if !p.Valid() {
		return "UNKNOWN"
	}
	return priorityNames[p.Slot()]
}

// PriorityBySlot returns the priority occupying the given slot.
func PriorityBySlot(slot int) (Priority, bool) {
	if slot < 0 || slot >= len(priorityNames) {
		return 0, false
	}
	return Priority(slot + 1), true
}

// PriorityByName returns the priority with the given name, case-insensitive.
func PriorityByName(name string) (Priority, bool) {
	for i, n := range priorityNames {
		if strings.EqualFold(n, name) {
			return Priority(i + 1), true
		}
	}
	return 0, false
}
