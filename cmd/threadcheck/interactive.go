package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/wasm-threadcheck/harness"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

type caseStartedMsg struct {
	index int
}

type caseDoneMsg struct {
	index  int
	result harness.Result
}

type matrixDoneMsg struct {
	report harness.Report
}

type interactiveModel struct {
	cancel  context.CancelFunc
	name    string
	cases   []string
	results []*harness.Result
	report  *harness.Report
	spinner spinner.Model
	running int
}

func newInteractiveModel(m harness.Matrix, cancel context.CancelFunc) *interactiveModel {
	cases := make([]string, len(m.Cases))
	for i, cs := range m.Cases {
		if c, err := cs.Case(); err == nil {
			cases[i] = c.String()
		} else {
			cases[i] = fmt.Sprintf("case %d", i+1)
		}
	}
	return &interactiveModel{
		cancel:  cancel,
		name:    m.Name,
		cases:   cases,
		results: make([]*harness.Result, len(m.Cases)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(caseStyle.UnsetWidth())),
		running: -1,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			if m.report != nil {
				return m, tea.Quit
			}
		}

	case caseStartedMsg:
		m.running = msg.index

	case caseDoneMsg:
		r := msg.result
		m.results[msg.index] = &r

	case matrixDoneMsg:
		m.report = &msg.report
		m.running = -1
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("threadcheck"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n\n")

	for i, name := range m.cases {
		switch {
		case m.results[i] != nil:
			b.WriteString(resultLine(*m.results[i]))
		case i == m.running:
			b.WriteString(m.spinner.View())
			b.WriteString("   ")
			b.WriteString(caseStyle.Render(name))
		default:
			b.WriteString("      ")
			b.WriteString(helpStyle.Render(name))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.report == nil {
		b.WriteString(helpStyle.Render("q cancel"))
	}
	return b.String()
}

// runInteractive runs the matrix on a goroutine and renders progress until
// it completes or the user cancels.
func runInteractive(ctx context.Context, backend harness.Backend, m harness.Matrix) (harness.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newInteractiveModel(m, cancel)
	p := tea.NewProgram(model)

	go func() {
		report := harness.Run(ctx, backend, m,
			harness.OnStart(func(i int, _ outcome.Case) { p.Send(caseStartedMsg{index: i}) }),
			harness.OnResult(func(i int, r harness.Result) { p.Send(caseDoneMsg{index: i, result: r}) }))
		p.Send(matrixDoneMsg{report: report})
	}()

	if _, err := p.Run(); err != nil {
		return harness.Report{}, err
	}
	if model.report == nil {
		return harness.Report{}, context.Canceled
	}
	return *model.report, nil
}
