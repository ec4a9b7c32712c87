package calculator

import (
	"strconv"
	"strings"
)

// token is an operand or an operator. Operands have op == opNone; their text
// may be empty where a sign stands in place of an operand.
type token struct {
	text string
	op   operator
	col  int
}

func (t token) String() string {
	kind := "num"
	if t.op != opNone {
		kind = "op"
	}
	return kind + ":" + t.text + "@" + strconv.Itoa(t.col)
}

// empty returns whether t is the empty operand left by splitting around a
// sign.
func (t token) empty() bool {
	return t.op == opNone && t.text == ""
}

// value parses an operand token.
func (t token) value() (float64, error) {
	if t.op != opNone {
		return 0, &ParseError{Col: t.col, Reason: "expected operand, found", Text: t.text}
	}
	if t.text == "" {
		return 0, &ParseError{Col: t.col, Reason: "missing operand"}
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, &NumericError{Col: t.col, Text: t.text, Err: err}
	}
	return v, nil
}

// spaces are the whitespace characters allowed around operands.
const spaces = " \t\r\n"

// tokenize splits a parenthesis-free expression around its operators. The
// result always has odd length, with operands at even indices and operators
// at odd indices. cols gives the input column of each byte of s.
func tokenize(s string, cols []int) []token {
	var toks []token
	last := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Operators, s[i]) < 0 {
			continue
		}
		toks = append(toks, operand(s, cols, last, i))
		toks = append(toks, token{text: s[i : i+1], op: operator(s[i]), col: cols[i]})
		last = i + 1
	}
	return append(toks, operand(s, cols, last, len(s)))
}

// operand creates the operand token for s[start:end] with surrounding
// whitespace removed.
func operand(s string, cols []int, start, end int) token {
	for start < end && strings.IndexByte(spaces, s[start]) >= 0 {
		start++
	}
	for end > start && strings.IndexByte(spaces, s[end-1]) >= 0 {
		end--
	}
	t := token{text: s[start:end]}
	switch {
	case start < len(cols):
		t.col = cols[start]
	case len(cols) > 0:
		t.col = cols[len(cols)-1] + 1
	}
	return t
}

// texts returns the text of each token, for logging.
func texts(toks []token) []string {
	r := make([]string, len(toks))
	for i, t := range toks {
		r[i] = t.text
	}
	return r
}
