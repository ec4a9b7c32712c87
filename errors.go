package calculator

import (
	"errors"
	"strconv"
)

// Kind classifies evaluation errors.
type Kind int8

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	// KindParse is a malformed expression: unbalanced or empty parentheses,
	// a missing operand, or an unrecognized character.
	KindParse
	// KindNumeric is an operand that is not a valid number.
	KindNumeric
	// KindArithmetic is an operation without a finite result, e.g. division
	// by zero.
	KindArithmetic
	// KindInternal is any other failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindParse:
		return "parse"
	case KindNumeric:
		return "numeric"
	case KindArithmetic:
		return "arithmetic"
	case KindInternal:
		return "internal"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// EvalError is an error with a kind and position information. Every error
// returned by Evaluate implements EvalError.
type EvalError interface {
	error
	// Kind returns the class of the error.
	Kind() Kind
	// Pos returns the 1-based column in the input at which the error was
	// detected, or 0 if the error has no position.
	Pos() int
}

// ParseError indicates a malformed expression.
type ParseError struct {
	// Col is the column of the offending character or token.
	Col int
	// Reason describes what is wrong.
	Reason string
	// Text is the offending text, if any.
	Text string
}

func (err *ParseError) Error() string {
	if err.Text == "" {
		return errpos(err.Col, err.Reason)
	}
	return errpos(err.Col, err.Reason+" "+strconv.Quote(err.Text))
}

func (err *ParseError) Kind() Kind { return KindParse }
func (err *ParseError) Pos() int   { return err.Col }

// NumericError indicates an operand that does not parse as a finite number.
type NumericError struct {
	// Col is the column of the operand.
	Col int
	// Text is the operand.
	Text string
	// Err is the error from strconv, if any.
	Err error
}

func (err *NumericError) Error() string {
	return errpos(err.Col, "invalid number "+strconv.Quote(err.Text))
}

func (err *NumericError) Unwrap() error { return err.Err }
func (err *NumericError) Kind() Kind    { return KindNumeric }
func (err *NumericError) Pos() int      { return err.Col }

// ArithmeticError indicates an operation that has no finite result.
type ArithmeticError struct {
	// Col is the column of the operator.
	Col int
	// Op is the operator.
	Op string
	// Reason describes the failure, e.g. "division by zero".
	Reason string
}

func (err *ArithmeticError) Error() string {
	return errpos(err.Col, err.Reason)
}

func (err *ArithmeticError) Kind() Kind { return KindArithmetic }
func (err *ArithmeticError) Pos() int   { return err.Col }

// InternalError wraps a failure that does not fit any other kind. It should
// not occur for any input.
type InternalError struct {
	Err error
}

func (err *InternalError) Error() string {
	return "internal error: " + err.Err.Error()
}

func (err *InternalError) Unwrap() error { return err.Err }
func (err *InternalError) Kind() Kind    { return KindInternal }
func (err *InternalError) Pos() int      { return 0 }

// KindOf returns the kind of err. Errors that do not implement EvalError are
// KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e EvalError
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindInternal
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	if pos <= 0 {
		return msg
	}
	return msg + " at column " + strconv.Itoa(pos)
}

var (
	_ EvalError = (*ParseError)(nil)
	_ EvalError = (*NumericError)(nil)
	_ EvalError = (*ArithmeticError)(nil)
	_ EvalError = (*InternalError)(nil)
)
