package xdispatch

import "sync"

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide singleton Bus, building one with default
// configuration on first use. The first caller's goroutine becomes the
// default bus's main goroutine.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus == nil {
		defaultBus = NewBusBuilder().Build()
	}
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xdispatch: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Subscribe is the Facade using the default bus.
func Subscribe(l Listener) { Default().Subscribe(l) }

// Unsubscribe is the Facade using the default bus.
func Unsubscribe(l Listener) { Default().Unsubscribe(l) }
