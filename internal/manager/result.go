package manager

import (
	"errors"

	"github.com/rcliao/memindex/internal/schema"
	"github.com/rcliao/memindex/internal/store"
)

// Code classifies a failed operation.
type Code string

const (
	CodeValidationFailed   Code = "ValidationFailed"
	CodeCapacityExceeded   Code = "CapacityExceeded"
	CodeNotFound           Code = "NotFound"
	CodeIntegrityViolation Code = "IntegrityViolation"
	CodeInvalidTransition  Code = "InvalidTransition"
	CodeNotInitialized     Code = "NotInitialized"
	CodeInternal           Code = "Internal"
)

// ErrNotInitialized is returned by every operation called before Initialize
// or after Shutdown.
var ErrNotInitialized = errors.New("manager not initialized")

// Failure describes why an operation failed.
type Failure struct {
	Code    Code                `json:"code"`
	Message string              `json:"message"`
	Fields  []schema.FieldError `json:"fields,omitempty"`
	err     error
}

func (f *Failure) Error() string { return string(f.Code) + ": " + f.Message }

func (f *Failure) Unwrap() error { return f.err }

// Result is the outcome of a public Manager operation. When OK is false,
// Err describes the failure and Value is the zero value (except where an
// operation documents otherwise).
type Result[T any] struct {
	OK    bool     `json:"ok"`
	Value T        `json:"value,omitempty"`
	Err   *Failure `json:"error,omitempty"`
}

// Unwrap returns the value and the failure as a plain error.
func (r Result[T]) Unwrap() (T, error) {
	if r.OK {
		return r.Value, nil
	}
	return r.Value, r.Err
}

func succeed[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: toFailure(err)}
}

// toFailure maps an error to its Code, keeping the original for errors.Is.
func toFailure(err error) *Failure {
	f := &Failure{Code: CodeInternal, Message: err.Error(), err: err}

	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		f.Code = CodeValidationFailed
		f.Fields = ve.Fields
	case errors.Is(err, ErrNotInitialized):
		f.Code = CodeNotInitialized
	case errors.Is(err, store.ErrCapacityExceeded):
		f.Code = CodeCapacityExceeded
	case errors.Is(err, store.ErrNotFound):
		f.Code = CodeNotFound
	case errors.Is(err, store.ErrIntegrityViolation):
		f.Code = CodeIntegrityViolation
	case errors.Is(err, store.ErrInvalidTransition):
		f.Code = CodeInvalidTransition
	case errors.Is(err, errInvalidInput), errors.Is(err, store.ErrInvalidRecord):
		f.Code = CodeValidationFailed
	}
	return f
}

// errInvalidInput marks caller mistakes that are not schema violations.
var errInvalidInput = errors.New("invalid input")
