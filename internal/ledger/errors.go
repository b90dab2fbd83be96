package ledger

import (
	"errors"
	"net/http"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested movement.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrFatalInconsistency marks a transfer whose compensating re-credit
	// failed, leaving a debited sender that was never made whole.
	ErrFatalInconsistency = errors.New("fatal inconsistency")
)

// Kind classifies engine errors. Its String form is the stable code callers
// match on.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPolicy
	KindInsufficientFunds
	KindNotFound
	KindFatalInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindPolicy:
		return "POLICY_VIOLATION"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindNotFound:
		return "NOT_FOUND"
	case KindFatalInconsistency:
		return "FATAL_INCONSISTENCY"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is returned by every engine operation that rejects a request.
type Error struct {
	kind    Kind
	msg     string
	err     error
	applied bool
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return e.kind.String()
}

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable machine-readable code.
func (e *Error) Code() string { return e.kind.String() }

// Applied reports whether balances changed before the operation failed.
// A retry of such a request must not run the movement again.
func (e *Error) Applied() bool { return e.applied }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the kind to an HTTP status code.
func (e *Error) StatusCode() int {
	switch e.kind {
	case KindValidation, KindPolicy, KindInsufficientFunds:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// ValidationError reports malformed input.
func ValidationError(msg string) *Error { return newError(KindValidation, msg, nil) }

// PolicyError reports a request that breaks a business rule.
func PolicyError(msg string) *Error { return newError(KindPolicy, msg, nil) }

// NotFoundError reports a missing account or record.
func NotFoundError(msg string, err error) *Error { return newError(KindNotFound, msg, err) }

// InsufficientFundsError reports a rejected debit.
func InsufficientFundsError() *Error {
	return newError(KindInsufficientFunds, "insufficient balance", ErrInsufficientFunds)
}

// FatalInconsistencyError reports a failed compensation.
func FatalInconsistencyError(msg string, err error) *Error {
	e := newError(KindFatalInconsistency, msg, errors.Join(ErrFatalInconsistency, err))
	e.applied = true
	return e
}

// InternalError wraps a store or infrastructure failure.
func InternalError(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// UnrecordedError reports a movement that was applied but whose record could
// not be stored or queued.
func UnrecordedError(err error) *Error {
	e := newError(KindInternal, "transaction applied but not recorded", err)
	e.applied = true
	return e
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == k
}
