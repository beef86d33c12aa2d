package delegate

import "errors"

// Sentinel errors returned by delegation runs.
//
// ErrInvalidConfiguration and ErrRecursionLimit surface before any child
// session is created. ErrDanglingExhausted and ErrValidationExhausted end a
// wait that could otherwise retry forever; they are fatal, not a failed
// child result.
var (
	ErrInvalidConfiguration = errors.New("delegate: invalid configuration")
	ErrRecursionLimit       = errors.New("delegate: recursion limit exceeded")
	ErrNoWorkItems          = errors.New("delegate: no valid parameters for parallel execution")
	ErrDanglingExhausted    = errors.New("delegate: child failed after 3 reminder attempts")
	ErrValidationExhausted  = errors.New("delegate: tool argument validation failed too many times")
	ErrUnsupportedStrategy  = errors.New("delegate: unsupported result strategy")
)
