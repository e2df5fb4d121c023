package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsafeExpression covers every construct outside the arithmetic
	// grammar, and malformed input.
	ErrUnsafeExpression = errors.New("unsafe expression")

	// ErrUnknownVariable is returned when a name is missing from the variables.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrArithmetic is returned for division by zero and non-finite results.
	ErrArithmetic = errors.New("arithmetic error")
)

// UnsafeExpressionError names what was rejected and where.
type UnsafeExpressionError struct {
	Pos    int
	Reason string
}

func (e *UnsafeExpressionError) Error() string {
	return fmt.Sprintf("unsafe expression at offset %d: %s", e.Pos, e.Reason)
}

func (e *UnsafeExpressionError) Unwrap() error { return ErrUnsafeExpression }

type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

func (e *UnknownVariableError) Unwrap() error { return ErrUnknownVariable }

type ArithmeticError struct {
	Op     string
	Reason string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic error in %s: %s", e.Op, e.Reason)
}

func (e *ArithmeticError) Unwrap() error { return ErrArithmetic }

func unsafe(pos int, format string, args ...any) error {
	return &UnsafeExpressionError{Pos: pos, Reason: fmt.Sprintf(format, args...)}
}
