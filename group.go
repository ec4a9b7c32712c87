package calculator

import (
	"strings"
	"unicode/utf8"
)

// innermost returns the bounds of the next group to reduce: the
// parenthesized group whose ( most recently precedes the first ) in s,
// brackets included. That is the leftmost of the innermost groups. If s has
// no parentheses, the group is all of s.
func innermost(s string) (start, end int) {
	start, end = 0, len(s)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			start = i
		case ')':
			return start, i + 1
		}
	}
	return start, end
}

// enclosed returns whether the first and last non-space characters of s are
// a matching pair of parentheses.
func enclosed(s string) bool {
	s = strings.Trim(s, spaces)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return false
			}
		}
	}
	return depth == 1
}

// validate checks that s contains only numerals, operators, parentheses, and
// whitespace, and that its parentheses are balanced, non-empty, and adjacent
// only to operators or other parentheses. Operand-level problems are left
// for the reducers to find.
func validate(s string) error {
	if strings.Trim(s, spaces) == "" {
		return &ParseError{Col: 1, Reason: "no expression"}
	}
	var open []int
	// prev is the last non-space character seen.
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= utf8.RuneSelf:
			r, _ := utf8.DecodeRuneInString(s[i:])
			return &ParseError{Col: column(s, i), Reason: "unrecognized character", Text: string(r)}
		case strings.IndexByte(spaces, c) >= 0:
			continue
		case c == '(':
			if prev != 0 && prev != '(' && strings.IndexByte(Operators, prev) < 0 {
				return &ParseError{Col: i + 1, Reason: "missing operator before", Text: "("}
			}
			open = append(open, i)
		case c == ')':
			if len(open) == 0 {
				return &ParseError{Col: i + 1, Reason: "close parenthesis with no open parenthesis"}
			}
			if prev == '(' {
				return &ParseError{Col: open[len(open)-1] + 1, Reason: "empty parentheses"}
			}
			open = open[:len(open)-1]
		case c == '.', '0' <= c && c <= '9':
			if prev == ')' {
				return &ParseError{Col: i + 1, Reason: "missing operator after", Text: ")"}
			}
		case strings.IndexByte(Operators, c) >= 0:
		default:
			return &ParseError{Col: i + 1, Reason: "unrecognized character", Text: string(c)}
		}
		prev = c
	}
	if len(open) > 0 {
		return &ParseError{Col: open[len(open)-1] + 1, Reason: "open parenthesis with no close parenthesis"}
	}
	return nil
}

// column converts a byte offset in s to a 1-based rune column.
func column(s string, i int) int {
	return utf8.RuneCountInString(s[:i]) + 1
}

// working is the expression being rewritten, along with the input column of
// each of its bytes so that errors point into the original input.
type working struct {
	s    string
	cols []int
}

func newWorking(s string) *working {
	w := working{s: s, cols: make([]int, len(s))}
	for i := range w.cols {
		// validate guarantees the input is ASCII.
		w.cols[i] = i + 1
	}
	return &w
}

// unwrap removes one layer of parentheses enclosing the entire expression.
func (w *working) unwrap() {
	if !enclosed(w.s) {
		return
	}
	start := strings.IndexByte(w.s, '(')
	end := strings.LastIndexByte(w.s, ')')
	w.s, w.cols = w.s[start+1:end], w.cols[start+1:end]
}

// splice replaces w.s[start:end] with text. The new text takes the column of
// the text it replaces.
func (w *working) splice(start, end int, text string) {
	col := w.cols[start]
	cols := make([]int, 0, len(w.cols)-(end-start)+len(text))
	cols = append(cols, w.cols[:start]...)
	for range text {
		cols = append(cols, col)
	}
	cols = append(cols, w.cols[end:]...)
	w.s = w.s[:start] + text + w.s[end:]
	w.cols = cols
}

// numeral returns whether the expression has been reduced to a single
// number.
func (w *working) numeral() bool {
	if strings.ContainsAny(w.s, "()") {
		return false
	}
	_, err := w.value()
	return err == nil
}

// value parses the expression as a single number.
func (w *working) value() (float64, error) {
	return operand(w.s, w.cols, 0, len(w.s)).value()
}
