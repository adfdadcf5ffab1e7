package assistant

import (
	"errors"
	"fmt"
)

// Kind classifies a failed turn for callers that map errors to responses.
type Kind string

const (
	KindValidation Kind = "validation"
	KindOracle     Kind = "oracle"
	KindSynthesis  Kind = "synthesis"
	KindExecution  Kind = "execution"
	KindSession    Kind = "session"
)

var (
	// ErrEmptyMessage rejects blank input before any oracle call.
	ErrEmptyMessage = errors.New("el mensaje es requerido")

	// ErrNotReadOnly is returned when the model produced anything but a SELECT.
	ErrNotReadOnly = errors.New("solo se permiten consultas SELECT por seguridad")

	// ErrMultipleStatements is returned when the model produced more than one statement.
	ErrMultipleStatements = errors.New("solo se permite una única consulta SQL")
)

// Error is a failed turn step.
type Error struct {
	Kind Kind
	Op   string // "classify", "synthesize", "execute", "narrate", "respond", ...
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error [%s]: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
