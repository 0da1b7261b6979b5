package toolloop

import (
	"errors"
	"fmt"
)

// Sentinel errors for toolloop. Use errors.Is to check.
var (
	// ErrUnsupportedType reports a declared parameter type outside the JSON
	// Schema primitives (string, number, integer, boolean, array, object).
	// It is a configuration error: it surfaces when the validator is built
	// from a tool declaration, never when checking arguments.
	ErrUnsupportedType = errors.New("unsupported parameter type")

	// ErrNilEndpoint reports a Run call without a model endpoint.
	ErrNilEndpoint = errors.New("model endpoint must not be nil")
)

// OrchestrationError wraps a fatal failure of the run: the model endpoint
// call itself failed. It aborts the run and is never retried. Per-tool-call
// failures (unknown name, missing invoker, validation failure, invoker error)
// never surface as an OrchestrationError; they degrade to a logged skip or
// an error tool turn and the run continues.
type OrchestrationError struct {
	Phase string // "tool round" or "final call" or "selector"
	Err   error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("toolloop: orchestration: %s: %v", e.Phase, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// ConfigError reports a malformed tool declaration found while compiling its
// parameter schema. It wraps ErrUnsupportedType when caused by an unknown
// declared type.
type ConfigError struct {
	Tool string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid tool declaration %q: %v", e.Tool, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// errorTurnContent renders an invoker failure as human-readable text for a
// tool turn. The model sees the tool name and the reason and may self-correct.
func errorTurnContent(tool string, err error) string {
	return fmt.Sprintf("tool %s failed: %v", tool, err)
}
