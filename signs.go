package calculator

// resolveSigns fuses each sign that stands in place of an operand into the
// operand that follows it. tokenize leaves an empty operand before such a
// sign, so "7/-4" arrives as [7 / "" - 4] and leaves as [7 / -4]. A run of
// signs folds algebraically: "--4" becomes 4 and "-+-4" becomes 4.
//
// The scan restarts after every fusion since the indices shift.
func resolveSigns(toks []token) ([]token, error) {
	for i := firstEmpty(toks); i >= 0; i = firstEmpty(toks) {
		neg := false
		j := i + 1
		for {
			if j >= len(toks) {
				return nil, &ParseError{Col: toks[i].col, Reason: "missing operand"}
			}
			sign := toks[j]
			if !sign.op.sign() {
				return nil, &ParseError{Col: sign.col, Reason: "missing operand before", Text: sign.text}
			}
			if sign.op == opSub {
				neg = !neg
			}
			j++
			if j >= len(toks) {
				return nil, &ParseError{Col: sign.col, Reason: "missing operand after", Text: sign.text}
			}
			if !toks[j].empty() {
				break
			}
			// Another sign follows.
			j++
		}
		num := toks[j]
		if num.op != opNone {
			// tokenize alternates operands and operators, so this means the
			// sequence was not produced by tokenize.
			return nil, &InternalError{Err: &ParseError{Col: num.col, Reason: "expected operand, found", Text: num.text}}
		}
		fused := token{text: num.text, col: toks[i+1].col}
		if neg {
			fused.text = "-" + num.text
		}
		toks[i] = fused
		toks = append(toks[:i+1], toks[j+1:]...)
	}
	return toks, nil
}

// firstEmpty returns the index of the first empty operand, or -1.
func firstEmpty(toks []token) int {
	for i, t := range toks {
		if t.empty() {
			return i
		}
	}
	return -1
}
