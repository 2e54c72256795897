package xdispatch

// API represents the non-generic xdispatch engine surface. Pipeline
// creation and lookup are the top-level generic functions CreatePipeline
// and GetPipeline.
type API interface {
	Subscribe(l Listener)
	Unsubscribe(l Listener)
	Listeners() []Listener
	PipelineNames() []string
	SetGlobalInterceptor(i Interceptor)
	SetExceptionHandler(h ExceptionHandler)
	SetExecutor(e Executor)
	Destroy(force bool)
}
