package xdispatch

import (
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	warningState    WarningState
	useTimings      bool
	strictPipelines bool

	mainGoroutine uint64
	hasMain       bool

	logger *xlog.Logger
	clock  xclock.Clock

	executor    Executor
	hasExecutor bool

	interceptor      Interceptor
	exceptionHandler ExceptionHandler
}

// NewBusBuilder returns a new builder with sensible defaults: default
// warning state, timings off, strict pipeline names, a goroutine-per-task
// executor, and the goroutine calling Build designated as main.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		warningState:    WarnDefault,
		strictPipelines: true,
	}
}

// WithWarningState sets the deprecated-event warning verbosity.
func (bb *BusBuilder) WithWarningState(ws WarningState) *BusBuilder {
	bb.warningState = ws
	return bb
}

// WithTimings enables per-pipeline delivery timing and the rolling-average
// log every tenth sample.
func (bb *BusBuilder) WithTimings(enabled bool) *BusBuilder {
	bb.useTimings = enabled
	return bb
}

// WithStrictPipelines controls the duplicate-pipeline-name policy: strict
// (the default) makes CreatePipeline fail, lenient logs a warning and
// overwrites the table entry.
func (bb *BusBuilder) WithStrictPipelines(strict bool) *BusBuilder {
	bb.strictPipelines = strict
	return bb
}

// WithMainGoroutine designates the calling goroutine as the bus's main
// goroutine for the thread-discipline assertion. Without it, the goroutine
// calling Build is designated.
func (bb *BusBuilder) WithMainGoroutine() *BusBuilder {
	bb.mainGoroutine = goid()
	bb.hasMain = true
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithExecutor sets the async-delivery executor. Passing nil disables the
// default executor, so asynchronous events deliver inline.
func (bb *BusBuilder) WithExecutor(e Executor) *BusBuilder {
	bb.executor = e
	bb.hasExecutor = true
	return bb
}

// WithGlobalInterceptor sets the initial engine-wide interceptor (nullable).
func (bb *BusBuilder) WithGlobalInterceptor(i Interceptor) *BusBuilder {
	bb.interceptor = i
	return bb
}

// WithExceptionHandler sets the initial engine-wide exception handler
// (nullable).
func (bb *BusBuilder) WithExceptionHandler(h ExceptionHandler) *BusBuilder {
	bb.exceptionHandler = h
	return bb
}

// Build assembles the Bus.
func (bb *BusBuilder) Build() *Bus {
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}
	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}

	main := bb.mainGoroutine
	if !bb.hasMain {
		main = goid()
	}

	b := &Bus{
		logger:          lg,
		clock:           clk,
		warningState:    bb.warningState,
		useTimings:      bb.useTimings,
		strictPipelines: bb.strictPipelines,
		mainGoroutine:   main,
		listeners:       make(map[*Type][]*registeredListener),
		pipelines:       make(map[string]pipelineEntry),
		timings:         make(map[string][]*Timing),
	}

	exec := bb.executor
	if !bb.hasExecutor {
		exec = NewGoExecutor()
	}
	b.SetExecutor(exec)
	b.SetGlobalInterceptor(bb.interceptor)
	b.SetExceptionHandler(bb.exceptionHandler)

	return b
}

// New constructs a Bus via Builder.
func New(init func(bb *BusBuilder)) *Bus {
	bb := NewBusBuilder()
	if init != nil {
		init(bb)
	}
	return bb.Build()
}
