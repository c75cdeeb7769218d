package checkout

import "errors"

// Error classes used by handlers to pick a response status. Wrapped with
// fmt.Errorf("%w: ...") so errors.Is works at the HTTP boundary.
var (
	// ErrConfiguration means a required secret or env var is absent. Fail
	// closed before any provider call is attempted.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation means the request input was malformed or insufficient.
	// No side effects have been attempted.
	ErrValidation = errors.New("validation error")

	// ErrSignature means webhook authenticity verification failed. This is
	// the trust boundary of the whole pipeline; nothing downstream may run.
	ErrSignature = errors.New("signature verification failed")
)
