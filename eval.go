package calculator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrorPrefix begins the result of Run when evaluation fails.
const ErrorPrefix = "Error: "

// Evaluator evaluates expressions. It holds no state between evaluations, so
// it is safe to use concurrently.
type Evaluator struct {
	log zerolog.Logger
}

// Option is an option used when creating an Evaluator.
type Option interface {
	evalOption(*Evaluator)
}

type logopt zerolog.Logger

func (o logopt) evalOption(e *Evaluator) { e.log = zerolog.Logger(o) }

// Logger sets the logger that receives each evaluation step at debug level
// and each Run at info level. The default discards everything.
func Logger(l zerolog.Logger) Option {
	return logopt(l)
}

// New creates an Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := Evaluator{log: zerolog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.evalOption(&e)
	}
	return &e
}

var std = New()

// Evaluate computes the value of an arithmetic expression using the default
// Evaluator.
func Evaluate(expr string) (float64, error) {
	return std.Evaluate(expr)
}

// Run evaluates an expression using the default Evaluator and formats the
// result for display.
func Run(expr string) string {
	return std.Run(expr)
}

// Evaluate computes the value of an arithmetic expression containing
// decimal numbers, the operators + - * /, parentheses, and signs. * and /
// bind tighter than + and -, and operators of equal precedence associate to
// the left.
//
// The expression is reduced by rewriting: the leftmost innermost
// parenthesized group is reduced to a number, which replaces the group in
// the text, until only a number remains. Errors implement EvalError.
func (e *Evaluator) Evaluate(expr string) (float64, error) {
	if err := validate(expr); err != nil {
		return 0, err
	}
	w := newWorking(expr)
	w.unwrap()
	// Each pass removes a group, so there can be no more passes than bytes.
	for pass := 0; !w.numeral(); pass++ {
		if pass > len(expr) {
			return 0, &InternalError{Err: fmt.Errorf("no progress reducing %q", w.s)}
		}
		start, end := innermost(w.s)
		inner, innerEnd := start, end
		if w.s[start] == '(' {
			inner, innerEnd = start+1, end-1
		}
		v, err := e.reduce(w.s[inner:innerEnd], w.cols[inner:innerEnd])
		if err != nil {
			return 0, err
		}
		before := w.s
		w.splice(start, end, formatScalar(v))
		e.log.Debug().Str("group", before[start:end]).Str("expr", w.s).Msg("substituted")
		if w.s == before {
			return 0, &InternalError{Err: fmt.Errorf("no progress reducing %q", w.s)}
		}
	}
	return w.value()
}

// reduce computes the value of a parenthesis-free expression.
func (e *Evaluator) reduce(s string, cols []int) (float64, error) {
	toks := tokenize(s, cols)
	toks, err := resolveSigns(toks)
	if err != nil {
		return 0, err
	}
	e.log.Debug().Strs("tokens", texts(toks)).Msg("resolved signs")
	toks, err = reduceMulDiv(toks)
	if err != nil {
		return 0, err
	}
	e.log.Debug().Strs("tokens", texts(toks)).Msg("resolved mul/div")
	return reduceLeft(toks)
}

// Run evaluates an expression and formats the result for display. If
// evaluation fails, the result is ErrorPrefix followed by the error message
// on a single line. Run never panics.
func (e *Evaluator) Run(expr string) string {
	r, _ := e.Result(expr)
	return r
}

// Result is like Run but also returns the error behind an error result.
func (e *Evaluator) Result(expr string) (result string, err error) {
	e.log.Info().Str("input", expr).Msg("input")
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		perr, ok := r.(error)
		if !ok {
			perr = fmt.Errorf("%v", r)
		}
		err = &InternalError{Err: perr}
		result = e.fail(err)
	}()
	v, err := e.Evaluate(expr)
	if err != nil {
		return e.fail(err), err
	}
	result = FormatResult(v)
	e.log.Info().Str("output", result).Msg("output")
	return result, nil
}

func (e *Evaluator) fail(err error) string {
	msg := ErrorMessage(err)
	e.log.Error().Str("kind", KindOf(err).String()).Msg(msg)
	return ErrorPrefix + msg
}

// ErrorMessage returns the message of err on a single line.
func ErrorMessage(err error) string {
	return newlines.Replace(err.Error())
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// IsError returns whether a result from Run reports an error.
func IsError(result string) bool {
	return strings.HasPrefix(result, ErrorPrefix)
}

// ResultError converts a result from Run back into an error, or nil if the
// result is a number.
func ResultError(result string) error {
	if !IsError(result) {
		return nil
	}
	return errors.New(strings.TrimPrefix(result, ErrorPrefix))
}

// FormatResult formats a value the way results are displayed: the shortest
// decimal that reads back exactly, with ".0" added to integers. The result
// is always a valid expression that evaluates to v.
func FormatResult(v float64) string {
	s := formatScalar(v)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
