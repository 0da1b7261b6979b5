package toolloop

import (
	"go.uber.org/zap"
)

// runOptions hold per-run settings. Every option has a documented default;
// the struct is built once at Run start and is immutable for the run.
type runOptions struct {
	streamFinal  bool
	maxToolRuns  int
	strict       bool
	verbose      bool
	logger       *zap.Logger
	selector     SelectorFunc
	loggerWasSet bool
}

// RunOption configures a single Run (e.g. WithMaxToolRuns, WithStrictValidation).
type RunOption func(*runOptions)

// WithStreamFinalResponse makes the final model call (the one issued without
// tool offers) a streaming call. Tool-calling rounds are always synchronous
// since they need a structured response. Default: off.
func WithStreamFinalResponse() RunOption {
	return func(o *runOptions) {
		o.streamFinal = true
	}
}

// WithMaxToolRuns bounds how many additional tool rounds may follow the
// first one. The first model response is always dispatched; each extra round
// consumes one unit of n. Bounds worst-case cost and latency against a model
// that keeps requesting tools. Negative values are treated as 0. Default: 0.
func WithMaxToolRuns(n int) RunOption {
	return func(o *runOptions) {
		if n < 0 {
			n = 0
		}
		o.maxToolRuns = n
	}
}

// WithStrictValidation validates tool-call arguments against the tool's
// declared parameter schema before invoking it. Calls that fail validation
// are skipped: no tool turn is appended and the run continues. Default: off
// (arguments are passed to the invoker unchecked).
func WithStrictValidation() RunOption {
	return func(o *runOptions) {
		o.strict = true
	}
}

// WithLogger injects the logger used by the run and its collaborators.
// Default: zap.NewNop().
func WithLogger(logger *zap.Logger) RunOption {
	return func(o *runOptions) {
		if logger != nil {
			o.logger = logger
			o.loggerWasSet = true
		}
	}
}

// WithVerbose enables diagnostic logging. When no logger was injected via
// WithLogger, a development logger is constructed for the run. Default: off.
func WithVerbose() RunOption {
	return func(o *runOptions) {
		o.verbose = true
	}
}

// WithSelector sets the tool selector applied once at the start of the run,
// before the first model call. Default: identity (all tools pass through).
func WithSelector(fn SelectorFunc) RunOption {
	return func(o *runOptions) {
		o.selector = fn
	}
}

// newRunOptions applies opts over the defaults and resolves the logger.
func newRunOptions(opts ...RunOption) runOptions {
	o := runOptions{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.verbose && !o.loggerWasSet {
		if logger, err := zap.NewDevelopment(); err == nil {
			o.logger = logger
		}
	}
	return o
}
