package brain

import "errors"

// Sentinel failures of the two external-call stages. Callers match with
// errors.Is and decide between retry-with-backoff and degraded responses.
var (
	// ErrClassifierUnavailable means the classification call failed or
	// timed out before a valid result was obtained. Retryable.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrMalformedResponse means the model answered but the reply could
	// not be parsed into the expected structure. Retried once inside the
	// classifier, then escalated.
	ErrMalformedResponse = errors.New("malformed classifier response")

	// ErrGenerationFailed means no suggestion candidate could be
	// generated. Retryable.
	ErrGenerationFailed = errors.New("suggestion generation failed")
)

// EngineError wraps a pipeline failure with a retryable flag so callers
// can route it (retry-with-backoff vs hard failure) without inspecting
// the cause chain.
type EngineError struct {
	Err       error
	Retryable bool
}

func (e *EngineError) Error() string {
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error) *EngineError {
	return &EngineError{Err: err, Retryable: true}
}

func NewFatalError(err error) *EngineError {
	return &EngineError{Err: err, Retryable: false}
}
