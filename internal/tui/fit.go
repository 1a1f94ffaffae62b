package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mhelwig/odefit/internal/optim"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const historyCap = 200

type progressMsg optim.Progress

type searchDoneMsg struct{}

// FitView renders a running grid search: evaluation counter, current and
// best log-likelihood, the best parameter set so far, and a sparkline of
// how the best log-likelihood improved.
type FitView struct {
	problem string
	updates <-chan optim.Progress

	last    optim.Progress
	history []float64
	started bool
	done    bool
	width   int
}

func NewFitView(problem string, updates <-chan optim.Progress) FitView {
	return FitView{
		problem: problem,
		updates: updates,
		history: make([]float64, 0, historyCap),
		width:   80,
	}
}

func waitForProgress(ch <-chan optim.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return searchDoneMsg{}
		}
		return progressMsg(p)
	}
}

func (v FitView) Init() tea.Cmd { return waitForProgress(v.updates) }

func (v FitView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		}
	case tea.WindowSizeMsg:
		v.width = msg.Width
		return v, nil
	case progressMsg:
		v.last = optim.Progress(msg)
		v.started = true
		v.history = append(v.history, v.last.BestLLH)
		if len(v.history) > historyCap {
			v.history = v.history[len(v.history)-historyCap:]
		}
		return v, waitForProgress(v.updates)
	case searchDoneMsg:
		v.done = true
		return v, tea.Quit
	}
	return v, nil
}

func (v FitView) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render("odefit") + white.Render("  grid search  ") + dim.Render(v.problem) + "\n\n")

	if !v.started {
		b.WriteString(dim.Render("  waiting for first evaluation...") + "\n")
		return b.String()
	}

	p := v.last
	b.WriteString(fmt.Sprintf("  %s %s\n", dim.Render("evaluations"),
		white.Render(fmt.Sprintf("%d / %d", p.Evaluations, p.Total))))
	b.WriteString(fmt.Sprintf("  %s %s\n", dim.Render("current llh"),
		white.Render(fmt.Sprintf("%.6g", p.LLH))))
	b.WriteString(fmt.Sprintf("  %s %s\n\n", dim.Render("best llh   "),
		green.Render(fmt.Sprintf("%.6g", p.BestLLH))))

	ids := make([]string, 0, len(p.Best))
	for id := range p.Best {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b.WriteString(dim.Render("  best parameters (scaled)") + "\n")
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("    %s = %s\n", magenta.Render(id),
			white.Render(fmt.Sprintf("%.6g", p.Best[id]))))
	}

	if len(v.history) > 1 {
		w := v.width - 12
		if w > 60 {
			w = 60
		}
		if w > 10 {
			chart := asciigraph.Plot(v.history,
				asciigraph.Height(6), asciigraph.Width(w), asciigraph.Caption("best llh"))
			b.WriteString("\n" + chart + "\n")
		}
	}

	if v.done {
		b.WriteString("\n" + green.Render("  search finished") + dim.Render("  press q to exit") + "\n")
	} else {
		b.WriteString("\n" + dim.Render("  q quit") + "\n")
	}
	return b.String()
}

// RunFit drives the live view until the updates channel closes or the
// user quits. It blocks the calling goroutine.
func RunFit(problem string, updates <-chan optim.Progress) error {
	_, err := tea.NewProgram(NewFitView(problem, updates)).Run()
	return err
}
