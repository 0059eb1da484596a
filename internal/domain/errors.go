package domain

import "errors"

var (
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrUnsupportedVariant  = errors.New("unsupported analysis variant")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrModelInvocation     = errors.New("model invocation failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrAssetUnavailable    = errors.New("asset unavailable")
)

// ValidationError rejects a request before any quota check or model call.
// Message is returned to the client verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidPayload
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// ModelError wraps a failure reported by the model provider.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return ErrModelInvocation.Error()
	}
	return e.Err.Error()
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

func (e *ModelError) Is(target error) bool {
	return target == ErrModelInvocation
}
