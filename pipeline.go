package xdispatch

import (
	"sort"
	"sync"
)

// Pipeline is a named conduit for one event type. Events submitted through
// Fire pass the ordered filter list before reaching registry-based delivery;
// the first filter returning false drops the event for this pipeline.
type Pipeline[T Event] struct {
	name string
	bus  *Bus

	mu      sync.RWMutex
	filters []func(ev T) bool
	less    func(a, b T) bool
}

// pipelineEntry is the type-erased view the bus keeps in its pipeline table.
type pipelineEntry interface {
	Destroy()
}

// Name returns the pipeline's unique name within its bus.
func (p *Pipeline[T]) Name() string { return p.name }

// CreatePipeline creates a named pipeline on the bus. A duplicate name is an
// ErrPipelineRegistered under strict pipeline names (the default); otherwise
// it is logged and the table entry is overwritten, orphaning the old
// pipeline.
func CreatePipeline[T Event](b *Bus, name string) (*Pipeline[T], error) {
	b.pipelinesMu.Lock()
	defer b.pipelinesMu.Unlock()

	if _, ok := b.pipelines[name]; ok {
		if b.strictPipelines {
			return nil, ErrPipelineRegistered{Name: name}
		}
		b.logger.Warn().
			Str("pipeline", name).
			Msg("xdispatch: pipeline already defined in scope")
	}

	p := &Pipeline[T]{name: name, bus: b}
	b.pipelines[name] = p
	return p, nil
}

// GetPipeline returns the stored pipeline. Unknown names report
// ErrPipelineNotFound; a stored pipeline of a different event type reports
// ErrPipelineType rather than silently misbehaving.
func GetPipeline[T Event](b *Bus, name string) (*Pipeline[T], error) {
	b.pipelinesMu.RLock()
	entry, ok := b.pipelines[name]
	b.pipelinesMu.RUnlock()

	if !ok {
		return nil, ErrPipelineNotFound
	}
	p, ok := entry.(*Pipeline[T])
	if !ok {
		return nil, ErrPipelineType{Name: name}
	}
	return p, nil
}

// Filter appends a predicate to the ordered filter list and returns the
// pipeline for chaining.
func (p *Pipeline[T]) Filter(filter func(ev T) bool) *Pipeline[T] {
	if filter == nil {
		return p
	}
	p.mu.Lock()
	p.filters = append(p.filters, filter)
	p.mu.Unlock()
	return p
}

// Sorted installs the batch comparator, overwriting any previous one. It
// only affects FireAll; single-event firing is never reordered.
func (p *Pipeline[T]) Sorted(less func(a, b T) bool) *Pipeline[T] {
	p.mu.Lock()
	p.less = less
	p.mu.Unlock()
	return p
}

// RegisterConsumer installs the callback as a terminal filter: it runs for
// every event that reaches it and then unconditionally stops pipeline
// processing, so registry-based delivery is never reached through it.
func (p *Pipeline[T]) RegisterConsumer(consumer func(ev T)) {
	if consumer == nil {
		return
	}
	p.Filter(func(ev T) bool {
		consumer(ev)
		return false
	})
}

// Fire submits one event. On a destroyed pipeline it logs and drops. Filters
// run in registration order; the first false return aborts delivery. A
// ThreadError from the engine is returned to the caller; listener failures
// never are.
func (p *Pipeline[T]) Fire(ev T) error {
	if p.bus.pipelineGone(p.name) {
		p.bus.logger.Warn().
			Str("pipeline", p.name).
			Str("event", ev.EventName()).
			Msg("xdispatch: pipeline destroyed, cannot fire event")
		return nil
	}

	p.mu.RLock()
	filters := make([]func(ev T) bool, len(p.filters))
	copy(filters, p.filters)
	p.mu.RUnlock()

	for _, filter := range filters {
		if !filter(ev) {
			return nil
		}
	}

	return p.bus.fire(ev, p.name)
}

// FireAll submits a batch. With a comparator installed and more than one
// element, the caller's slice is sorted in place first; elements are then
// fired one by one in the resulting order. There is no atomicity across the
// batch: a filter rejection or listener failure on one element does not
// affect the others. A ThreadError aborts the remainder.
func (p *Pipeline[T]) FireAll(events []T) error {
	if p.bus.pipelineGone(p.name) {
		p.bus.logger.Warn().
			Str("pipeline", p.name).
			Int("events", len(events)).
			Msg("xdispatch: pipeline destroyed, cannot fire events")
		return nil
	}

	p.mu.RLock()
	less := p.less
	p.mu.RUnlock()

	if less != nil && len(events) > 1 {
		sort.SliceStable(events, func(i, j int) bool { return less(events[i], events[j]) })
	}

	for _, ev := range events {
		if err := p.Fire(ev); err != nil {
			return err
		}
	}
	return nil
}

// Destroy clears the local filters and removes the pipeline from the bus's
// table. Idempotent; subsequent Fire calls become no-ops.
func (p *Pipeline[T]) Destroy() {
	if p.bus.pipelineGone(p.name) {
		return
	}

	p.mu.Lock()
	p.filters = nil
	p.mu.Unlock()

	p.bus.removePipeline(p.name)
}
