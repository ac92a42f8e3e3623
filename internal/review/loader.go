package review

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/leadmail/internal/model"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// RunFunc classifies a batch, reporting progress after each lead.
type RunFunc func(ctx context.Context, progress func(done, total int)) ([]model.LeadResult, error)

type runDoneMsg struct {
	results []model.LeadResult
	err     error
}

type progressMsg struct {
	done, total int
}

type spinnerTickMsg struct{}

type loaderModel struct {
	label   string
	runFn   func(ctx context.Context) ([]model.LeadResult, error)
	ctx     context.Context
	cancel  context.CancelFunc
	frame   int
	done    int
	total   int
	result  []model.LeadResult
	err     error
	stopped bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doRun(), m.tick())
}

func (m loaderModel) doRun() tea.Cmd {
	runFn, ctx := m.runFn, m.ctx
	return func() tea.Msg {
		results, err := runFn(ctx)
		return runDoneMsg{results: results, err: err}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		m.result = msg.results
		if m.err == nil {
			m.err = msg.err
		}
		m.stopped = true
		return m, tea.Quit
	case progressMsg:
		m.done, m.total = msg.done, msg.total
		return m, nil
	case spinnerTickMsg:
		if m.stopped {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// Wait for the run to observe cancellation so partial results are kept.
			m.err = fmt.Errorf("cancelled")
			m.cancel()
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.stopped {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	if m.total > 0 {
		return fmt.Sprintf("%s %s (%d/%d)...\n", spinner, m.label, m.done, m.total)
	}
	return fmt.Sprintf("%s %s...\n", spinner, m.label)
}

// RunLoader shows a spinner with progress while run executes. It renders
// inline (no alt screen). ctrl+c cancels the run context.
func RunLoader(label string, run RunFunc) ([]model.LeadResult, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var p *tea.Program
	m := loaderModel{
		label:  label,
		ctx:    ctx,
		cancel: cancel,
		runFn: func(ctx context.Context) ([]model.LeadResult, error) {
			return run(ctx, func(done, total int) {
				p.Send(progressMsg{done: done, total: total})
			})
		},
	}
	p = tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
