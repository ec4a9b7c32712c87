package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const clearKey = "AC"

// keypad lays out the key legend. The operator column runs down one side
// and the clear key sits on the parenthesis row, or on the zero row when
// the order is reversed.
func keypad(alignRight, reverse bool) [][]string {
	rows := [][]string{
		{"(", ")"},
		{"7", "8", "9"},
		{"4", "5", "6"},
		{"1", "2", "3"},
		{"0", "."},
	}
	ops := []string{"/", "*", "-", "+", "="}
	clearRow := 0
	if reverse {
		clearRow = len(rows) - 1
	}
	if alignRight {
		rows[clearRow] = append(rows[clearRow], clearKey)
	} else {
		rows[clearRow] = append([]string{clearKey}, rows[clearRow]...)
	}
	if reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	for i := range rows {
		if alignRight {
			rows[i] = append([]string{ops[i]}, rows[i]...)
		} else {
			rows[i] = append(rows[i], ops[i])
		}
	}
	return rows
}

func isOp(k string) bool {
	return len(k) == 1 && strings.Contains("/*-+=", k)
}

func (m Model) renderKeypad() string {
	var lines []string
	for _, row := range keypad(m.alignRight, m.reverse) {
		cells := make([]string, 0, len(row))
		for _, k := range row {
			if isOp(k) || k == clearKey {
				cells = append(cells, m.styles.op.Render(k))
			} else {
				cells = append(cells, m.styles.key.Render(k))
			}
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	pos := lipgloss.Left
	if m.alignRight {
		pos = lipgloss.Right
	}
	return lipgloss.JoinVertical(pos, lines...)
}
