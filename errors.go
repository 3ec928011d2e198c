package atmosphere

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup wraps every failure to create GPU objects.
	ErrSetup = errors.New("atmosphere: setup failed")

	ErrInvalidParameters = errors.New("atmosphere: invalid parameters")
	ErrUnsupportedFormat = errors.New("atmosphere: unsupported file format")
	ErrMissingShader     = errors.New("atmosphere: missing shader")
	ErrNoMemoryType      = errors.New("atmosphere: no suitable memory type")
)

// PreconditionError is the panic value raised when the API is misused.
type PreconditionError struct {
	Op  string
	Msg string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("atmosphere: %s: %s", e.Op, e.Msg)
}

func precondition(op, format string, args ...any) {
	panic(&PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// setupErr wraps err as a setup failure of op.
func setupErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrSetup, err)
}
