package xdispatch

import (
	"errors"
	"fmt"
)

// ErrPipelineRegistered is returned by CreatePipeline when the name is
// already taken and the bus was built with strict pipeline names.
type ErrPipelineRegistered struct{ Name string }

func (e ErrPipelineRegistered) Error() string {
	return fmt.Sprintf("pipeline %q already defined in scope", e.Name)
}

// ErrPipelineType is returned by GetPipeline when the stored pipeline was
// created for a different event type than the one requested.
type ErrPipelineType struct{ Name string }

func (e ErrPipelineType) Error() string {
	return fmt.Sprintf("pipeline %q is not of the requested event type", e.Name)
}

// ErrPipelineNotFound is returned by GetPipeline for unknown names.
var ErrPipelineNotFound = errors.New("xdispatch: pipeline not found")

// ThreadError reports a violation of the engine's thread discipline: a
// synchronous event fired off the main goroutine, or an asynchronous event
// fired on it. It is returned to the firing caller and never recovered
// internally.
type ThreadError struct {
	EventName string
	Async     bool
}

func (e *ThreadError) Error() string {
	if e.Async {
		return fmt.Sprintf("%s cannot be fired asynchronously from the main goroutine", e.EventName)
	}
	return fmt.Sprintf("%s cannot be fired synchronously from outside the main goroutine", e.EventName)
}

// HandlerError wraps a failure raised by a listener's handler, including a
// recovered panic. It is fully contained within per-listener delivery: it is
// routed to the exception handler or logged, and never propagates to the
// firing caller.
type HandlerError struct {
	EventName string
	Pipeline  string
	Listener  Listener
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("could not pass event %s to %T on pipeline %s: %v",
		e.EventName, e.Listener, e.Pipeline, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Timing state errors.
var (
	ErrTimingStopped = errors.New("xdispatch: cannot split timing after it has been stopped")
	ErrTimingRunning = errors.New("xdispatch: timing has not been stopped yet")
)
