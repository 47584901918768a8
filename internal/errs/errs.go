package errs

import "errors"

// Sentinel errors for mapping into HTTP codes and socket-close decisions.
var (
	ErrSessionNotFound           = errors.New("session not found")
	ErrSessionNotLive            = errors.New("session not active")
	ErrBroadcasterAlreadyPresent = errors.New("broadcaster already present")
	ErrCapacityExceeded          = errors.New("listener capacity exceeded")
	ErrBadToken                  = errors.New("bad listener token")
	ErrMalformedUpgrade          = errors.New("malformed upgrade request")
)
