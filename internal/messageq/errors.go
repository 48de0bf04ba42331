package messageq

import "errors"

// Failure categories reported by Publisher implementations. Broker specific
// causes are wrapped underneath so callers can match on either.
var (
	ErrConnectionUnavailable = errors.New("broker connection unavailable")
	ErrDeclarationConflict   = errors.New("queue declaration conflict")
	ErrPublishTransport      = errors.New("publish transport error")
)
