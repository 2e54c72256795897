package xdispatch

import "sync/atomic"

// Type is the registration-time token identifying one concrete event type.
// Tokens compare by identity: two Types created with the same name are
// distinct, and the registry only matches an event against the exact token
// it was registered under. Metadata the engine needs at registration time
// (deprecation, warning policy) is attached here instead of being discovered
// from the event value.
type Type struct {
	name       string
	deprecated bool
	warn       bool
	reason     string
}

// TypeOption configures a Type at construction.
type TypeOption func(*Type)

// Deprecated marks the event type as deprecated. Listeners registering for
// it are warned according to the engine's warning state. The reason, when
// non-empty, is included in the warning.
func Deprecated(reason string) TypeOption {
	return func(t *Type) {
		t.deprecated = true
		t.reason = reason
	}
}

// NoWarn suppresses the deprecation warning under the default warning state.
// WarnOn still prints.
func NoWarn() TypeOption {
	return func(t *Type) { t.warn = false }
}

// NewType creates a new event type token.
func NewType(name string, opts ...TypeOption) *Type {
	t := &Type{name: name, warn: true}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Name returns the type's name.
func (t *Type) Name() string { return t.name }

// IsDeprecated reports whether the type was marked deprecated.
func (t *Type) IsDeprecated() bool { return t.deprecated }

// Event is a notification value traveling through pipelines to listeners.
type Event interface {
	// Type returns the token this event was constructed with; the registry
	// keys listener sets by it.
	Type() *Type
	// EventName returns the event's name, defaulting to the type name.
	EventName() string
	// IsAsync reports whether the event is asynchronous. The flag is fixed
	// at construction and decides both the thread-discipline assertion and
	// whether delivery may go through the configured executor.
	IsAsync() bool
}

// Cancellable is an Event that can be marked cancelled. Listeners registered
// with IgnoreCancelled skip events observed as cancelled at delivery time.
type Cancellable interface {
	Event
	IsCancelled() bool
	SetCancelled(cancelled bool)
}

// Base is the embeddable Event implementation.
type Base struct {
	typ   *Type
	name  string
	async bool
}

// NewBase constructs the embeddable part of an event. The async flag never
// changes afterwards.
func NewBase(t *Type, async bool) Base {
	return Base{typ: t, async: async}
}

func (b *Base) Type() *Type { return b.typ }

// EventName returns the explicit name if one was set, else the type name.
func (b *Base) EventName() string {
	if b.name != "" {
		return b.name
	}
	if b.typ != nil {
		return b.typ.Name()
	}
	return ""
}

// SetEventName overrides the lazily defaulted name.
func (b *Base) SetEventName(name string) { b.name = name }

func (b *Base) IsAsync() bool { return b.async }

// Cancel is the embeddable cancellation capability. The flag is atomic so
// async deliveries may observe it without external locking.
type Cancel struct {
	cancelled atomic.Bool
}

func (c *Cancel) IsCancelled() bool { return c.cancelled.Load() }

func (c *Cancel) SetCancelled(cancelled bool) { c.cancelled.Store(cancelled) }
