package calculator

import "strconv"

// reduceMulDiv collapses every * and / window into its value, leftmost first,
// so that the result contains only + and - operators. The input must have
// had its signs resolved.
func reduceMulDiv(toks []token) ([]token, error) {
	for {
		k := -1
		for i, t := range toks {
			if t.op.multiplicative() {
				k = i
				break
			}
		}
		if k < 0 {
			return toks, nil
		}
		if k == 0 || k == len(toks)-1 {
			return nil, &ParseError{Col: toks[k].col, Reason: "missing operand for", Text: toks[k].text}
		}
		l, err := toks[k-1].value()
		if err != nil {
			return nil, err
		}
		r, err := toks[k+1].value()
		if err != nil {
			return nil, err
		}
		v, err := apply(l, toks[k], r)
		if err != nil {
			return nil, err
		}
		toks[k-1] = token{text: formatScalar(v), col: toks[k-1].col}
		toks = append(toks[:k], toks[k+2:]...)
	}
}

// reduceLeft folds a token sequence into one value, applying operators in
// order from left to right without regard to precedence. Call reduceMulDiv
// first for correct precedence.
func reduceLeft(toks []token) (float64, error) {
	if len(toks) == 0 {
		return 0, &ParseError{Reason: "no expression"}
	}
	acc, err := toks[0].value()
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(toks); i += 2 {
		op := toks[i]
		if i+1 >= len(toks) {
			return 0, &ParseError{Col: op.col, Reason: "missing operand after", Text: op.text}
		}
		r, err := toks[i+1].value()
		if err != nil {
			return 0, err
		}
		acc, err = apply(acc, op, r)
		if err != nil {
			return 0, err
		}
	}
	return acc, nil
}

// formatScalar formats an intermediate value so that it reads back exactly
// and contains no exponent, which would otherwise introduce a sign.
func formatScalar(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
