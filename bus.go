package xdispatch

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// timingWindow bounds the per-pipeline latency history; every tenth sample
// logs the rolling average over it.
const timingWindow = 100

// Bus is the central dispatch engine: it owns the listener registry, the
// pipeline table, the global interceptor/exception-handler/executor hooks,
// and performs thread-discipline checks, delivery and timing bookkeeping.
//
// Multiple goroutines may use a Bus concurrently. One goroutine is
// designated "main" at construction time; synchronous events must fire on
// it and asynchronous events must fire off it.
type Bus struct {
	logger *xlog.Logger
	clock  xclock.Clock

	warningState    WarningState
	useTimings      bool
	strictPipelines bool
	mainGoroutine   uint64

	listenersMu sync.RWMutex
	listeners   map[*Type][]*registeredListener

	pipelinesMu sync.RWMutex
	pipelines   map[string]pipelineEntry

	timingsMu sync.Mutex
	timings   map[string][]*Timing

	interceptor      atomic.Pointer[hookSlot[Interceptor]]
	exceptionHandler atomic.Pointer[hookSlot[ExceptionHandler]]
	executor         atomic.Pointer[hookSlot[Executor]]
}

var _ API = (*Bus)(nil)

// Subscribe registers the listener's declared handlers. Descriptor sets are
// merged additively into the registry per event type; re-subscribing an
// already-present listener is a no-op thanks to structural descriptor
// equality. Invalid registrations are logged and skipped.
func (b *Bus) Subscribe(l Listener) {
	regs := b.buildRegistrations(l)
	if len(regs) == 0 {
		return
	}

	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	for t, descs := range regs {
		set := b.listeners[t]
		for _, d := range descs {
			dup := false
			for _, existing := range set {
				if existing.equals(d) {
					dup = true
					break
				}
			}
			if !dup {
				set = append(set, d)
			}
		}
		// Delivery honors declared priority: lowest slot first, Monitor
		// last, registration order within a slot.
		sort.SliceStable(set, func(i, j int) bool {
			return set[i].priority.Slot() < set[j].priority.Slot()
		})
		b.listeners[t] = set
	}
}

// Unsubscribe removes every descriptor owned by the listener from every
// event type's set.
func (b *Bus) Unsubscribe(l Listener) {
	if l == nil {
		return
	}

	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()

	for t, set := range b.listeners {
		kept := set[:0]
		for _, d := range set {
			if !listenersEqual(d.listener, l) {
				kept = append(kept, d)
			}
		}
		if len(kept) == 0 {
			delete(b.listeners, t)
			continue
		}
		b.listeners[t] = kept
	}
}

// Listeners returns every currently subscribed listener, one entry per
// registered descriptor.
func (b *Bus) Listeners() []Listener {
	b.listenersMu.RLock()
	defer b.listenersMu.RUnlock()

	var out []Listener
	for _, set := range b.listeners {
		for _, d := range set {
			out = append(out, d.listener)
		}
	}
	return out
}

// PipelineNames returns the names of all live pipelines.
func (b *Bus) PipelineNames() []string {
	b.pipelinesMu.RLock()
	defer b.pipelinesMu.RUnlock()

	names := make([]string, 0, len(b.pipelines))
	for name := range b.pipelines {
		names = append(names, name)
	}
	return names
}

// SetGlobalInterceptor atomically swaps the engine-wide interceptor.
// Last writer wins; nil clears it.
func (b *Bus) SetGlobalInterceptor(i Interceptor) {
	b.interceptor.Store(newHookSlot(i, i != nil))
}

// SetExceptionHandler atomically swaps the engine-wide exception handler.
// Last writer wins; nil clears it.
func (b *Bus) SetExceptionHandler(h ExceptionHandler) {
	b.exceptionHandler.Store(newHookSlot(h, h != nil))
}

// SetExecutor atomically swaps the async-delivery executor. Last writer
// wins; nil makes asynchronous events deliver inline on the firing
// goroutine.
func (b *Bus) SetExecutor(e Executor) {
	b.executor.Store(newHookSlot(e, e != nil))
}

// Destroy shuts the engine down: the executor stops accepting work
// (cancelling queued work when force is set), every pipeline is destroyed
// and both the pipeline table and the listener registry are cleared. A
// destroyed bus is not restartable; further operations act on empty tables.
func (b *Bus) Destroy(force bool) {
	if exec, ok := b.executor.Load().get(); ok && exec != nil {
		if force {
			exec.ShutdownNow()
		} else {
			exec.Shutdown()
		}
	}

	b.pipelinesMu.RLock()
	entries := make([]pipelineEntry, 0, len(b.pipelines))
	for _, entry := range b.pipelines {
		entries = append(entries, entry)
	}
	b.pipelinesMu.RUnlock()

	for _, entry := range entries {
		entry.Destroy()
	}

	b.pipelinesMu.Lock()
	b.pipelines = make(map[string]pipelineEntry)
	b.pipelinesMu.Unlock()

	b.listenersMu.Lock()
	b.listeners = make(map[*Type][]*registeredListener)
	b.listenersMu.Unlock()

	b.timingsMu.Lock()
	b.timings = make(map[string][]*Timing)
	b.timingsMu.Unlock()
}

// pipelineGone reports whether no pipeline with the name is live. An
// overwritten pipeline shares its name with its replacement, so both count
// as live until the name is removed.
func (b *Bus) pipelineGone(name string) bool {
	b.pipelinesMu.RLock()
	_, ok := b.pipelines[name]
	b.pipelinesMu.RUnlock()
	return !ok
}

func (b *Bus) removePipeline(name string) {
	b.pipelinesMu.Lock()
	delete(b.pipelines, name)
	b.pipelinesMu.Unlock()
}

// fire is the registry-based dispatch, reached only after a pipeline's
// filters all passed. Listener resolution is by the event's exact type
// token; supertype handlers never match. With no listeners the call returns
// before the interceptor, the thread assertion or any timing work.
func (b *Bus) fire(ev Event, pipeline string) error {
	b.listenersMu.RLock()
	set := b.listeners[ev.Type()]
	descs := make([]*registeredListener, len(set))
	copy(descs, set)
	b.listenersMu.RUnlock()

	if len(descs) == 0 {
		return nil
	}

	if ev.IsAsync() {
		if goid() == b.mainGoroutine {
			return &ThreadError{EventName: ev.EventName(), Async: true}
		}
	} else if goid() != b.mainGoroutine {
		return &ThreadError{EventName: ev.EventName(), Async: false}
	}

	if ic, ok := b.interceptor.Load().get(); ok && ic != nil {
		if b.intercepted(ic, ev) {
			return nil
		}
	}

	var timing *Timing
	if b.useTimings {
		timing = NewTiming(ev.EventName(), b.clock)
	}

	b.deliver(descs, ev, pipeline)

	if timing != nil {
		timing.Stop()
		b.recordTiming(pipeline, timing)
	}
	return nil
}

// intercepted runs the global interceptor. A nil result vetoes the
// dispatch. A replacement result is accepted but ignored: the original
// event continues downstream. Interceptor failures are caught, logged and
// treated as no interception.
func (b *Bus) intercepted(ic Interceptor, ev Event) (vetoed bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", ev.EventName()).
				Err(fmt.Errorf("interceptor panic: %v", r)).
				Msg("xdispatch: could not pass event to global interceptor")
			vetoed = false
		}
	}()

	if ic.Intercept(ev) == nil {
		b.logger.Debug().
			Str("event", ev.EventName()).
			Msg("xdispatch: event was intercepted and cancelled")
		return true
	}
	return false
}

// deliver invokes every resolved descriptor in priority order. Each
// delivery is independently isolated: one listener's failure never prevents
// delivery to the rest.
func (b *Bus) deliver(descs []*registeredListener, ev Event, pipeline string) {
	exec, hasExec := b.executor.Load().get()

	for _, d := range descs {
		if c, ok := ev.(Cancellable); ok && c.IsCancelled() && d.ignoreCancelled {
			continue
		}

		if ev.IsAsync() && hasExec && exec != nil {
			d := d
			exec.Execute(func() { b.invoke(d, ev, pipeline) })
			continue
		}
		b.invoke(d, ev, pipeline)
	}
}

// invoke runs one handler and contains its failure: the error (or recovered
// panic) is wrapped into a HandlerError and routed to the exception handler,
// or logged when none is configured.
func (b *Bus) invoke(d *registeredListener, ev Event, pipeline string) {
	err := callHandler(d.handler, ev)
	if err == nil {
		return
	}

	herr := &HandlerError{
		EventName: ev.EventName(),
		Pipeline:  pipeline,
		Listener:  d.listener,
		Err:       err,
	}

	if eh, ok := b.exceptionHandler.Load().get(); ok && eh != nil {
		eh.Handle(ev, herr)
		return
	}

	b.logger.Error().
		Str("event", ev.EventName()).
		Str("listener", fmt.Sprintf("%T", d.listener)).
		Str("pipeline", pipeline).
		Err(err).
		Msg("xdispatch: could not pass event to listener")
}

func callHandler(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ev)
}

// recordTiming appends one sample to the pipeline's bounded history
// (drop-oldest at capacity) and logs the rolling average on every tenth
// sample.
func (b *Bus) recordTiming(pipeline string, t *Timing) {
	b.timingsMu.Lock()
	list := append(b.timings[pipeline], t)
	if len(list) > timingWindow {
		copy(list, list[1:])
		list = list[:timingWindow]
	}
	b.timings[pipeline] = list

	n := len(list)
	logAvg := n >= 10 && n%10 == 0
	var avg time.Duration
	if logAvg {
		var sum time.Duration
		for _, sample := range list {
			d, err := sample.Duration()
			if err != nil {
				continue
			}
			sum += d
		}
		avg = sum / time.Duration(n)
	}
	b.timingsMu.Unlock()

	if logAvg {
		b.logger.Info().
			Str("pipeline", pipeline).
			Int("samples", min(n, timingWindow)).
			Dur("avg", avg).
			Msg("xdispatch: rolling average delivery time")
	}
}
