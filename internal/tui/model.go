// Package tui implements the interactive terminal calculator.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/zephyrtronium/calculator"
)

// EvalFunc evaluates an expression into a display result. A non-nil error
// reports a failure to obtain any result, such as a lost connection.
type EvalFunc func(ctx context.Context, expr string) (string, error)

// Local evaluates expressions in process.
func Local(e *calculator.Evaluator) EvalFunc {
	return func(ctx context.Context, expr string) (string, error) {
		return e.Run(expr), nil
	}
}

// Config configures the terminal calculator.
type Config struct {
	Eval       EvalFunc
	Theme      string
	AlignRight bool
	Reverse    bool
	// Remote is the server address shown in the title, if any.
	Remote string
	Log    zerolog.Logger
}

// allowed lists the characters the input accepts.
const allowed = "0123456789.+-*/() "

// resultMsg carries the outcome of an evaluation.
type resultMsg struct {
	expr   string
	result string
	err    error
}

// Model is the bubbletea model for the calculator.
type Model struct {
	ctx    context.Context
	input  textinput.Model
	eval   EvalFunc
	log    zerolog.Logger
	remote string

	result  string
	errMsg  string
	pending bool

	themeIdx   int
	styles     styles
	alignRight bool
	reverse    bool
	width      int
}

// New creates a calculator model.
func New(ctx context.Context, cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "2+3*4"
	ti.Prompt = ""
	ti.CharLimit = 1024
	ti.Focus()
	eval := cfg.Eval
	if eval == nil {
		eval = Local(calculator.New())
	}
	idx := themeIndex(cfg.Theme)
	return Model{
		ctx:        ctx,
		input:      ti,
		eval:       eval,
		log:        cfg.Log,
		remote:     cfg.Remote,
		themeIdx:   idx,
		styles:     themes[idx].styles(),
		alignRight: cfg.AlignRight,
		reverse:    cfg.Reverse,
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case resultMsg:
		m.pending = false
		err := msg.err
		if err == nil {
			err = calculator.ResultError(msg.result)
		}
		if err != nil {
			m.showError(err)
			return m, nil
		}
		m.errMsg = ""
		m.result = msg.result
		m.input.SetValue(msg.result)
		m.input.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		return m.evaluate()

	case tea.KeyCtrlT:
		m.themeIdx = (m.themeIdx + 1) % len(themes)
		m.styles = themes[m.themeIdx].styles()
		m.log.Debug().Str("theme", themes[m.themeIdx].name).Msg("set theme")
		return m, nil

	case tea.KeyCtrlR:
		m.alignRight = !m.alignRight
		m.log.Debug().Bool("right_align", m.alignRight).Msg("set keypad alignment")
		return m, nil

	case tea.KeyCtrlO:
		m.reverse = !m.reverse
		m.log.Debug().Bool("reverse", m.reverse).Msg("set keypad order")
		return m, nil

	case tea.KeyCtrlL:
		m.input.Reset()
		m.result = ""
		m.errMsg = ""
		return m, nil

	case tea.KeyRunes:
		if string(msg.Runes) == "=" {
			return m.evaluate()
		}
		runes := msg.Runes[:0:0]
		for _, r := range msg.Runes {
			if strings.ContainsRune(allowed, r) {
				runes = append(runes, r)
			}
		}
		if len(runes) == 0 {
			return m, nil
		}
		msg.Runes = runes
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evaluate starts evaluating the current input. Empty input does nothing.
func (m Model) evaluate() (tea.Model, tea.Cmd) {
	expr := m.input.Value()
	if expr == "" || m.pending {
		return m, nil
	}
	m.pending = true
	eval, ctx := m.eval, m.ctx
	return m, func() tea.Msg {
		r, err := eval(ctx, expr)
		return resultMsg{expr: expr, result: r, err: err}
	}
}

func (m *Model) showError(err error) {
	m.errMsg = calculator.ErrorPrefix + calculator.ErrorMessage(err)
	m.result = ""
	m.input.Reset()
	m.log.Debug().Err(err).Msg("evaluation failed")
}

// View renders the calculator.
func (m Model) View() string {
	title := "Calculator"
	if m.remote != "" {
		title += " @ " + m.remote
	}
	width := 30
	if m.width > 0 && m.width-4 < width {
		width = max(m.width-4, 10)
	}
	align := lipgloss.Left
	if m.alignRight {
		align = lipgloss.Right
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(m.styles.input.Width(width).Render(m.input.View()))
	b.WriteString("\n")
	result := m.result
	if m.pending {
		result = "…"
	}
	b.WriteString(m.styles.result.Width(width).Align(align).Render(result))
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(m.styles.err.Width(width).Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(m.renderKeypad())
	b.WriteString("\n\n")
	b.WriteString(m.styles.help.Render("enter/= evaluate • ctrl+l clear • ctrl+t theme (" + themes[m.themeIdx].name + ") • ctrl+r align • ctrl+o order • esc quit"))
	return b.String()
}

// Run runs the calculator until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, cfg), opts...).Run()
	return err
}
