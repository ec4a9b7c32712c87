package calculator_test

import (
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/zephyrtronium/calculator"
)

// oracle is an independent recursive-descent evaluator used to check
// Evaluate on generated expressions.
type oracle struct {
	src string
	pos int
}

var errOracleDivZero = errors.New("division by zero")

func oracleEval(src string) (float64, error) {
	o := oracle{src: src}
	v, err := o.expr()
	if err != nil {
		return 0, err
	}
	o.space()
	if o.pos != len(o.src) {
		return 0, errors.New("trailing input at " + strconv.Itoa(o.pos))
	}
	return v, nil
}

func (o *oracle) space() {
	for o.pos < len(o.src) && o.src[o.pos] == ' ' {
		o.pos++
	}
}

func (o *oracle) peek() byte {
	o.space()
	if o.pos >= len(o.src) {
		return 0
	}
	return o.src[o.pos]
}

func (o *oracle) expr() (float64, error) {
	l, err := o.term()
	if err != nil {
		return 0, err
	}
	for c := o.peek(); c == '+' || c == '-'; c = o.peek() {
		o.pos++
		r, err := o.term()
		if err != nil {
			return 0, err
		}
		if c == '+' {
			l += r
		} else {
			l -= r
		}
	}
	return l, nil
}

func (o *oracle) term() (float64, error) {
	l, err := o.factor()
	if err != nil {
		return 0, err
	}
	for c := o.peek(); c == '*' || c == '/'; c = o.peek() {
		o.pos++
		r, err := o.factor()
		if err != nil {
			return 0, err
		}
		if c == '*' {
			l *= r
		} else {
			if r == 0 {
				return 0, errOracleDivZero
			}
			l /= r
		}
	}
	return l, nil
}

func (o *oracle) factor() (float64, error) {
	switch c := o.peek(); {
	case c == '-':
		o.pos++
		v, err := o.factor()
		return -v, err
	case c == '+':
		o.pos++
		return o.factor()
	case c == '(':
		o.pos++
		v, err := o.expr()
		if err != nil {
			return 0, err
		}
		if o.peek() != ')' {
			return 0, errors.New("missing ) at " + strconv.Itoa(o.pos))
		}
		o.pos++
		return v, nil
	default:
		start := o.pos
		for o.pos < len(o.src) && (o.src[o.pos] == '.' || '0' <= o.src[o.pos] && o.src[o.pos] <= '9') {
			o.pos++
		}
		return strconv.ParseFloat(o.src[start:o.pos], 64)
	}
}

// genexpr writes a random well-formed expression.
func genexpr(b *strings.Builder, rng *rand.Rand, depth int) {
	n := 1 + rng.Intn(4)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(" +-*/"[1+rng.Intn(4)])
		}
		switch rng.Intn(6) {
		case 0:
			b.WriteByte('-')
		case 1:
			b.WriteString("--")
		}
		if depth > 0 && rng.Intn(3) == 0 {
			b.WriteByte('(')
			genexpr(b, rng, depth-1)
			b.WriteByte(')')
			continue
		}
		if rng.Intn(3) == 0 {
			b.WriteString(strconv.Itoa(rng.Intn(100)) + "." + strconv.Itoa(rng.Intn(10)))
		} else {
			b.WriteString(strconv.Itoa(rng.Intn(20)))
		}
		if rng.Intn(5) == 0 {
			b.WriteByte(' ')
		}
	}
}

func TestEvaluateMatchesOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		var b strings.Builder
		genexpr(&b, rng, 3)
		src := b.String()
		want, werr := oracleEval(src)
		got, err := calculator.Evaluate(src)
		switch {
		case errors.Is(werr, errOracleDivZero):
			if calculator.KindOf(err) != calculator.KindArithmetic {
				t.Errorf("%q: want arithmetic error, got %v, %v", src, got, err)
			}
		case werr != nil:
			t.Fatalf("oracle failed on generated %q: %v", src, werr)
		case err != nil:
			t.Errorf("%q: want %g, got error %v", src, want, err)
		case !near(want, got):
			t.Errorf("%q: want %g, got %g", src, want, got)
		}
	}
}
