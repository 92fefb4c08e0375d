package referral

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an *Error so callers can tell validation failures from
// missing records without matching on messages.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	default:
		return "internal"
	}
}

func (k Kind) httpStatus() int {
	switch k {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every Directory and ProviderStorage operation.
type Error struct {
	kind Kind
	msg  string
	err  error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Kind() Kind {
	return e.kind
}

// Message is the caller facing description without the wrapped cause.
func (e *Error) Message() string {
	return e.msg
}

func newErr(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func newErrf(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, msg string, err error) error {
	return &Error{kind: kind, msg: msg, err: err}
}

// internalErr wraps a store failure unless it already carries a kind.
func internalErr(msg string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return wrapErr(KindInternal, msg, err)
}

func errNotFound(id int64) error {
	return newErrf(KindNotFound, "provider %d not found", id)
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

func IsBadRequest(err error) bool { return err != nil && kindOf(err) == KindBadRequest }
func IsValidation(err error) bool { return err != nil && kindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return err != nil && kindOf(err) == KindNotFound }

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
