package xdispatch

import (
	"fmt"

	"github.com/trickstertwo/xlog"
)

// Interceptor is the engine-wide hook consulted before delivery. Returning
// nil vetoes the dispatch entirely. A non-nil return is accepted but the
// original event reference continues downstream; interceptors observe and
// veto, they do not substitute.
type Interceptor interface {
	Intercept(ev Event) Event
}

// InterceptorFunc is an Adapter that lets a plain function satisfy Interceptor.
type InterceptorFunc func(ev Event) Event

func (f InterceptorFunc) Intercept(ev Event) Event { return f(ev) }

// ExceptionHandler receives listener failures instead of the engine's
// fallback logging.
type ExceptionHandler interface {
	Handle(ev Event, err error)
}

// ExceptionHandlerFunc is an Adapter that lets a plain function satisfy
// ExceptionHandler.
type ExceptionHandlerFunc func(ev Event, err error)

func (f ExceptionHandlerFunc) Handle(ev Event, err error) { f(ev, err) }

// LoggingExceptionHandler is an Adapter that reports listener failures via xlog.
type LoggingExceptionHandler struct {
	Logger *xlog.Logger
}

func (h LoggingExceptionHandler) Handle(ev Event, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error().
		Str("event", ev.EventName()).
		Str("listener", listenerName(err)).
		Err(err).
		Msg("xdispatch: listener failed")
}

func listenerName(err error) string {
	if he, ok := err.(*HandlerError); ok {
		return fmt.Sprintf("%T", he.Listener)
	}
	return ""
}

// hookSlot wraps a hook value so nil and unset stay distinguishable inside
// an atomic.Pointer. Hook reads are lock-free; writers swap whole slots, so
// a reader mid-dispatch sees either the old or the new hook, never a torn one.
type hookSlot[T any] struct{ v T }

func newHookSlot[T any](v T, set bool) *hookSlot[T] {
	if !set {
		return nil
	}
	return &hookSlot[T]{v: v}
}

func (s *hookSlot[T]) get() (T, bool) {
	if s == nil {
		var zero T
		return zero, false
	}
	return s.v, true
}
