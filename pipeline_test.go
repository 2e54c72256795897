package xdispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePipelineDuplicateStrict(t *testing.T) {
	bus := New(nil)

	_, err := CreatePipeline[*testEvent](bus, "orders")
	require.NoError(t, err)

	_, err = CreatePipeline[*testEvent](bus, "orders")
	var dup ErrPipelineRegistered
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "orders", dup.Name)
}

func TestCreatePipelineOverwriteWhenLenient(t *testing.T) {
	bus := New(func(bb *BusBuilder) { bb.WithStrictPipelines(false) })

	old, err := CreatePipeline[*testEvent](bus, "orders")
	require.NoError(t, err)
	fresh, err := CreatePipeline[*testEvent](bus, "orders")
	require.NoError(t, err)
	require.NotSame(t, old, fresh)

	got, err := GetPipeline[*testEvent](bus, "orders")
	require.NoError(t, err)
	assert.Same(t, fresh, got, "table entry was overwritten")
}

func TestGetPipeline(t *testing.T) {
	bus := New(nil)
	created := mustPipeline[*testEvent](t, bus, "orders")

	got, err := GetPipeline[*testEvent](bus, "orders")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = GetPipeline[*testEvent](bus, "missing")
	assert.ErrorIs(t, err, ErrPipelineNotFound)

	_, err = GetPipeline[*auditEvent](bus, "orders")
	var mismatch ErrPipelineType
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "orders", mismatch.Name)
}

func TestFilterShortCircuit(t *testing.T) {
	bus := New(nil)
	typ := NewType("Filtered")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	var secondRan bool
	p := mustPipeline[*testEvent](t, bus, "filtered")
	p.Filter(func(ev *testEvent) bool { return false }).
		Filter(func(ev *testEvent) bool {
			secondRan = true
			return true
		})

	require.NoError(t, p.Fire(newTestEvent(typ, false, 1)))

	assert.False(t, secondRan, "later filters must not run")
	assert.Empty(t, l.events(), "registry delivery must not run")
}

func TestChainedAttributeFilters(t *testing.T) {
	bus := New(nil)
	typ := NewType("Attributed")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	p := mustPipeline[*testEvent](t, bus, "attributed")
	p.Filter(func(ev *testEvent) bool { return ev.hasX }).
		Filter(func(ev *testEvent) bool { return ev.x })

	missing := newTestEvent(typ, false, 1)
	require.NoError(t, p.Fire(missing))
	assert.Empty(t, l.events(), "event missing the attribute is blocked")

	set := newTestEvent(typ, false, 2)
	set.hasX = true
	set.x = true
	require.NoError(t, p.Fire(set))
	require.Len(t, l.events(), 1)
	assert.Same(t, set, l.events()[0])
}

func TestRegisterConsumer(t *testing.T) {
	bus := New(nil)
	typ := NewType("Consumed")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	var consumed []*testEvent
	p := mustPipeline[*testEvent](t, bus, "consumed")
	p.RegisterConsumer(func(ev *testEvent) { consumed = append(consumed, ev) })

	var deadFilterRan bool
	p.Filter(func(ev *testEvent) bool {
		deadFilterRan = true
		return true
	})

	require.NoError(t, p.Fire(newTestEvent(typ, false, 1)))

	assert.Len(t, consumed, 1, "consumer runs exactly once")
	assert.Empty(t, l.events(), "registry delivery is never reached")
	assert.False(t, deadFilterRan, "filters after a consumer are dead code")
}

func TestFireAllSortsInPlace(t *testing.T) {
	bus := New(nil)
	typ := NewType("Batched")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	p := mustPipeline[*testEvent](t, bus, "batched")
	p.Sorted(func(a, b *testEvent) bool { return a.key < b.key })

	batch := []*testEvent{
		newTestEvent(typ, false, 2),
		newTestEvent(typ, false, 1),
		newTestEvent(typ, false, 3),
	}
	require.NoError(t, p.FireAll(batch))

	keys := func(events []*testEvent) []int {
		out := make([]int, len(events))
		for i, ev := range events {
			out[i] = ev.key
		}
		return out
	}
	assert.Equal(t, []int{1, 2, 3}, keys(batch), "caller slice is sorted in place")

	delivered := l.events()
	require.Len(t, delivered, 3)
	got := make([]int, len(delivered))
	for i, ev := range delivered {
		got[i] = ev.(*testEvent).key
	}
	assert.Equal(t, []int{1, 2, 3}, got, "listeners observe sorted order")
}

func TestFireAllWithoutComparatorKeepsOrder(t *testing.T) {
	bus := New(nil)
	typ := NewType("Unsorted")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	p := mustPipeline[*testEvent](t, bus, "unsorted")
	batch := []*testEvent{
		newTestEvent(typ, false, 2),
		newTestEvent(typ, false, 1),
	}
	require.NoError(t, p.FireAll(batch))

	delivered := l.events()
	require.Len(t, delivered, 2)
	assert.Equal(t, 2, delivered[0].(*testEvent).key)
	assert.Equal(t, 1, delivered[1].(*testEvent).key)
}

func TestFireOnDestroyedPipeline(t *testing.T) {
	bus := New(nil)
	typ := NewType("Dropped")
	l := newCaptureListener(typ, Normal, false)
	bus.Subscribe(l)

	p := mustPipeline[*testEvent](t, bus, "dropped")
	p.Destroy()
	p.Destroy() // idempotent

	require.NoError(t, p.Fire(newTestEvent(typ, false, 1)))
	require.NoError(t, p.FireAll([]*testEvent{newTestEvent(typ, false, 2)}))
	assert.Empty(t, l.events())
	assert.Empty(t, bus.PipelineNames())

	// A destroyed pipeline still chains, with no observable effect.
	p.Filter(func(ev *testEvent) bool { return true }).
		Sorted(func(a, b *testEvent) bool { return a.key < b.key })
	require.NoError(t, p.Fire(newTestEvent(typ, false, 3)))
	assert.Empty(t, l.events())
}

func TestBatchIndependence(t *testing.T) {
	bus := New(nil)
	typ := NewType("Independent")
	bus.Subscribe(&failingListener{typ: typ})
	survivor := newCaptureListener(typ, Monitor, false)
	bus.Subscribe(survivor)

	p := mustPipeline[*testEvent](t, bus, "independent")
	p.Filter(func(ev *testEvent) bool { return ev.key != 2 })

	require.NoError(t, p.FireAll([]*testEvent{
		newTestEvent(typ, false, 1),
		newTestEvent(typ, false, 2), // filtered out
		newTestEvent(typ, false, 3), // still delivered
	}))

	delivered := survivor.events()
	require.Len(t, delivered, 2)
	assert.Equal(t, 1, delivered[0].(*testEvent).key)
	assert.Equal(t, 3, delivered[1].(*testEvent).key)
}
