// Package calculator evaluates arithmetic expressions.
//
// Expressions contain decimal numbers, the binary operators + - * /,
// parentheses, and signs, as in "-4*((-5+3)/7)". Multiplication and division
// bind tighter than addition and subtraction, and operators of equal
// precedence associate to the left. Values are float64.
//
// There is no syntax tree. Evaluation repeatedly finds the leftmost innermost
// parenthesized group, splits it around its operators, fuses signs into
// their operands, reduces * and / and then + and - from left to right, and
// writes the value back into the expression in place of the group, until
// only a number is left.
//
// Run wraps Evaluate for display: it returns the formatted result, or
// "Error: " and a one-line message. The cmd/calculator program uses it
// locally, behind a stream server, and in a terminal UI.
package calculator
