package subagent

import "errors"

// ErrorKind is the stable, wire-safe identifier for a core error. Tool
// responses surface {"error": kind, "detail": ...} rather than a bare Go
// error string, and never let a panic or raw error cross the tool
// boundary.
type ErrorKind string

const (
	KindDepthExceeded      ErrorKind = "DepthExceeded"
	KindQuotaExceeded      ErrorKind = "QuotaExceeded"
	KindQueueFull          ErrorKind = "QueueFull"
	KindNotFound           ErrorKind = "NotFound"
	KindDuplicateNamespace ErrorKind = "DuplicateNamespace"
	KindTooManyListeners   ErrorKind = "TooManyListeners"
	KindBlockedByHook      ErrorKind = "BlockedByHook"
)

// CoreError is the concrete error type for every failure the core can
// produce. It implements error and exposes Kind() for wire encoding, and
// wraps an optional cause for errors.Is/errors.As chaining.
type CoreError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *CoreError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Is matches against the sentinel for e.Kind, so errors.Is(err,
// ErrNotFound) works regardless of Detail/Cause.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newErr(kind ErrorKind, detail string) *CoreError {
	return &CoreError{Kind: kind, Detail: detail}
}

// Sentinels usable with errors.Is; Detail is empty on these so callers
// should compare only Kind.
var (
	ErrDepthExceeded      = &CoreError{Kind: KindDepthExceeded}
	ErrQuotaExceeded      = &CoreError{Kind: KindQuotaExceeded}
	ErrQueueFull          = &CoreError{Kind: KindQueueFull}
	ErrNotFound           = &CoreError{Kind: KindNotFound}
	ErrDuplicateNamespace = &CoreError{Kind: KindDuplicateNamespace}
	ErrTooManyListeners   = &CoreError{Kind: KindTooManyListeners}
	ErrBlockedByHook      = &CoreError{Kind: KindBlockedByHook}
)
