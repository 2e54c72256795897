package xdispatch

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Handler is the invocation thunk bound to exactly one declared event type.
// Returning an error (or panicking) marks the delivery as failed for this
// listener only; other listeners still receive the event.
type Handler func(ev Event) error

// Registration declares one handler a listener wants invoked. It is the
// explicit replacement for reflective handler discovery: the listener names
// the event type token, the priority and the cancellation policy itself.
type Registration struct {
	// Type is the event type token this handler is bound to. Required.
	Type *Type
	// Priority orders invocation within the type's listener set.
	// The zero value means Normal.
	Priority Priority
	// IgnoreCancelled skips delivery when the event is observed cancelled.
	IgnoreCancelled bool
	// Handler is the invocation thunk. Required.
	Handler Handler
}

// Listener is implemented by components that want events delivered to them.
// EventHandlers is consulted once per Subscribe call.
type Listener interface {
	EventHandlers() []Registration
}

// registeredListener binds one accepted Registration to its listener and
// owning bus. The listener reference is shared, not owned.
type registeredListener struct {
	listener        Listener
	handler         Handler
	handlerID       uintptr
	priority        Priority
	bus             *Bus
	ignoreCancelled bool
}

// equals is structural over (listener, handler identity, priority, bus,
// ignore-cancelled); duplicate registrations collapse through it.
func (r *registeredListener) equals(o *registeredListener) bool {
	return r.ignoreCancelled == o.ignoreCancelled &&
		r.priority == o.priority &&
		r.bus == o.bus &&
		r.handlerID == o.handlerID &&
		listenersEqual(r.listener, o.listener)
}

// listenersEqual compares listener references without panicking on
// non-comparable dynamic types. Comparable listeners (pointers included) use
// their own equality.
func listenersEqual(a, b Listener) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if !va.Comparable() {
		return false
	}
	return a == b
}

// buildRegistrations turns a listener's declared handlers into per-type
// descriptor sets. Invalid registrations are logged and skipped, never fatal.
func (b *Bus) buildRegistrations(l Listener) map[*Type][]*registeredListener {
	out := make(map[*Type][]*registeredListener)
	if l == nil {
		return out
	}

	for _, reg := range l.EventHandlers() {
		if reg.Type == nil {
			b.logger.Error().
				Str("listener", fmt.Sprintf("%T", l)).
				Msg("xdispatch: registration has no event type")
			continue
		}
		if reg.Handler == nil {
			b.logger.Error().
				Str("listener", fmt.Sprintf("%T", l)).
				Str("event", reg.Type.Name()).
				Msg("xdispatch: registration has no handler")
			continue
		}

		prio := reg.Priority
		if prio == 0 {
			prio = Normal
		}
		if !prio.Valid() {
			b.logger.Error().
				Str("listener", fmt.Sprintf("%T", l)).
				Str("event", reg.Type.Name()).
				Int("priority", int(reg.Priority)).
				Msg("xdispatch: registration has invalid priority")
			continue
		}

		b.warnDeprecated(l, reg.Type)

		desc := &registeredListener{
			listener:        l,
			handler:         reg.Handler,
			handlerID:       reflect.ValueOf(reg.Handler).Pointer(),
			priority:        prio,
			bus:             b,
			ignoreCancelled: reg.IgnoreCancelled,
		}

		set := out[reg.Type]
		dup := false
		for _, existing := range set {
			if existing.equals(desc) {
				dup = true
				break
			}
		}
		if !dup {
			out[reg.Type] = append(set, desc)
		}
	}

	return out
}

// warnDeprecated emits the deprecated-event warning gated by the configured
// warning state. WarnOn additionally logs the registration stack trace.
func (b *Bus) warnDeprecated(l Listener, t *Type) {
	if !t.IsDeprecated() || !b.warningState.printFor(t) {
		return
	}

	reason := t.reason
	if reason == "" {
		reason = "application performance will be affected"
	}
	b.logger.Warn().
		Str("listener", fmt.Sprintf("%T", l)).
		Str("event", t.Name()).
		Str("reason", reason).
		Msg("xdispatch: listener registered for deprecated event")

	if b.warningState == WarnOn {
		b.logger.Warn().
			Str("stack", string(debug.Stack())).
			Msg("xdispatch: stack trace of the event registration")
	}
}
