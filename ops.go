package calculator

import "math"

// Operators contains the characters which are operators. + and - are also
// signs when they appear where an operand is expected.
const Operators = "+-*/"

// operator is an operator character, or opNone for operand tokens.
type operator byte

const (
	opNone operator = 0
	opAdd  operator = '+'
	opSub  operator = '-'
	opMul  operator = '*'
	opDiv  operator = '/'
)

func (op operator) String() string {
	if op == opNone {
		return ""
	}
	return string(rune(op))
}

// sign returns whether op may act as the sign of an operand.
func (op operator) sign() bool {
	return op == opAdd || op == opSub
}

// multiplicative returns whether op binds tighter than + and -.
func (op operator) multiplicative() bool {
	return op == opMul || op == opDiv
}

// apply computes l op r. The token gives the operator and its position.
func apply(l float64, op token, r float64) (float64, error) {
	var v float64
	switch op.op {
	case opAdd:
		v = l + r
	case opSub:
		v = l - r
	case opMul:
		v = l * r
	case opDiv:
		if r == 0 {
			return 0, &ArithmeticError{Col: op.col, Op: op.text, Reason: "division by zero"}
		}
		v = l / r
	default:
		return 0, &ParseError{Col: op.col, Reason: "expected operator, found", Text: op.text}
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &ArithmeticError{Col: op.col, Op: op.text, Reason: "result out of range"}
	}
	return v, nil
}
