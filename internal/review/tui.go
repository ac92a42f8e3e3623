package review

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/leadmail/internal/compose"
	"github.com/amishk599/leadmail/internal/model"
)

// Lines per lead item in the list view (title + subtitle + blank separator).
const leadItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

const (
	paneDrafted = iota
	paneSkipped
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	failedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// openURL opens url with the system handler, fire-and-forget.
var openURL = func(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Options configures the review TUI. Classifier may be nil, which disables
// re-drafting. Save, when set, persists re-drafted results.
type Options struct {
	Classifier model.Classifier
	Source     string
	Profile    model.Profile
	Save       func(model.LeadResult) error
}

// redraftedMsg is sent when an async re-classification completes.
type redraftedMsg struct {
	index  int
	result model.LeadResult
	err    error
}

type reviewModel struct {
	results       []model.LeadResult
	drafted       []int // indexes into results
	skipped       []int
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	// Detail view state
	view            viewState
	detailIndex     int
	detailViewport  viewport.Model
	showDescription bool
	status          string

	opts           Options
	redraftLoading bool
	redraftError   string

	wantQuit bool
}

func newReviewModel(results []model.LeadResult, opts Options) reviewModel {
	m := reviewModel{results: results, opts: opts}
	m.partition()
	return m
}

// partition splits results into the drafted and skipped panes, keeping input order.
func (m *reviewModel) partition() {
	m.drafted, m.skipped = m.drafted[:0], m.skipped[:0]
	for i, r := range m.results {
		if !r.Failed() && r.Classification.IsEntryLevel {
			m.drafted = append(m.drafted, i)
		} else {
			m.skipped = append(m.skipped, i)
		}
	}
	m.leftCursor = clamp(m.leftCursor, 0, max(len(m.drafted)-1, 0))
	m.rightCursor = clamp(m.rightCursor, 0, max(len(m.skipped)-1, 0))
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case redraftedMsg:
		m.redraftLoading = false
		if msg.err != nil {
			m.redraftError = fmt.Sprintf("re-draft failed: %v", msg.err)
		} else {
			m.redraftError = ""
			m.results[msg.index] = msg.result
			if m.opts.Save != nil {
				if err := m.opts.Save(msg.result); err != nil {
					m.redraftError = fmt.Sprintf("saving result: %v", err)
				}
			}
			m.partition()
			m.recalcContent()
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == paneDrafted {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := m.results[m.detailIndex]
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		m.status = ""
		return m, nil
	case "o":
		if r.Classification.IsEntryLevel && !r.Failed() {
			openURL(compose.MailtoURL(r.Lead.Email, r.Classification.EmailSubject, r.Classification.EmailBody))
			m.status = "opened mail client for " + r.Lead.Email
		} else {
			m.status = "no drafted email for this lead"
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	case "r":
		m.showDescription = !m.showDescription
		m.detailViewport.SetContent(m.renderDetail())
		m.detailViewport.SetYOffset(0)
		return m, nil
	case "s":
		if m.opts.Classifier != nil && !m.redraftLoading {
			m.redraftLoading = true
			m.redraftError = ""
			m.detailViewport.SetContent(m.renderDetail())
			return m, m.redraftCmd(m.detailIndex, r)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) redraftCmd(index int, prev model.LeadResult) tea.Cmd {
	c, profile, source := m.opts.Classifier, m.opts.Profile, m.opts.Source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		cls, err := c.Classify(ctx, prev.Lead, profile)
		if err != nil {
			return redraftedMsg{index: index, err: err}
		}
		next := prev
		next.Classification = cls
		next.Err = ""
		next.Source = source
		next.ProcessedAt = time.Now()
		return redraftedMsg{index: index, result: next}
	}
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == paneDrafted {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.drafted)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.skipped)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == paneDrafted {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * leadItemHeight
	cursorBottom := cursorTop + leadItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	items := m.activeItems()
	if len(items) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detailIndex = items[m.activeCursor()]
	m.showDescription = false
	m.redraftError = ""
	m.status = ""
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(m.renderItems(m.drafted, m.leftCursor, m.activePane == paneDrafted))
	m.rightViewport.SetContent(m.renderItems(m.skipped, m.rightCursor, m.activePane == paneSkipped))
}

func (m reviewModel) activeItems() []int {
	if m.activePane == paneDrafted {
		return m.drafted
	}
	return m.skipped
}

func (m reviewModel) activeCursor() int {
	if m.activePane == paneDrafted {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Entry-Level (%d)", len(m.drafted))
	rightHeader := fmt.Sprintf(" Skipped (%d)", len(m.skipped))

	leftHeaderRendered, rightHeaderRendered := inactiveHeaderStyle.Render(leftHeader), inactiveHeaderStyle.Render(rightHeader)
	leftBorder, rightBorder := inactiveBorderStyle.Width(paneWidth), inactiveBorderStyle.Width(paneWidth)
	if m.activePane == paneDrafted {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
	} else {
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Render(m.leftViewport.View()),
		" ",
		rightBorder.Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d leads | %d drafted | %d skipped    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.results), len(m.drafted), len(m.skipped))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Lead Details")
	if m.redraftLoading {
		title += "  (re-drafting...)"
	}

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o compose  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	if m.opts.Classifier != nil {
		statusText = " o compose  r desc  s re-draft  esc/backspace back  ↑/↓ scroll  q quit"
	}
	if m.status != "" {
		statusText = " " + m.status + "   " + statusText
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	r := m.results[m.detailIndex]
	c := r.Classification
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("To", r.Lead.Email)
	addField("Phone", r.Lead.Phone)
	addField("Source", r.Source)
	addField("Run", shortID(r.RunID))
	if !r.ProcessedAt.IsZero() {
		addField("Processed", r.ProcessedAt.Local().Format("2006-01-02 15:04"))
	}
	b.WriteByte('\n')
	addField("Decision", decisionLabel(r))
	addField("Reason", c.Reason)

	if r.Failed() {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+r.Err) + "\n")
	}
	if m.redraftError != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+m.redraftError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	if c.IsEntryLevel && !r.Failed() {
		b.WriteByte('\n')
		b.WriteString(divider("── Email ") + "\n\n")
		addField("Subject", c.EmailSubject)
		b.WriteByte('\n')
		b.WriteString(bodyStyle.Render(wrapParagraphs(c.EmailBody, wrapWidth)) + "\n")
	} else if m.redraftLoading {
		b.WriteByte('\n')
		b.WriteString(hintStyle.Render("  re-drafting...") + "\n")
	}

	b.WriteByte('\n')
	if m.showDescription {
		b.WriteString(divider("── Job Description ") + "\n\n")
		b.WriteString(bodyStyle.Render(wordWrap(r.Lead.Description, wrapWidth)) + "\n")
	} else {
		b.WriteString(hintStyle.Render("  press r to read job description") + "\n")
	}

	return b.String()
}

func decisionLabel(r model.LeadResult) string {
	switch {
	case r.Failed():
		return "failed"
	case r.Classification.IsEntryLevel:
		return "entry-level"
	default:
		return "skipped"
	}
}

func itemTitle(r model.LeadResult) string {
	if !r.Failed() && r.Classification.IsEntryLevel && r.Classification.EmailSubject != "" {
		return r.Classification.EmailSubject
	}
	return truncateLine(r.Lead.Description, 60)
}

func (m reviewModel) renderItems(items []int, cursor int, isActive bool) string {
	if len(items) == 0 {
		return "  (no leads)"
	}

	var b strings.Builder
	for i, idx := range items {
		r := m.results[idx]
		isSelected := isActive && i == cursor

		titleSt := itemTitleStyle
		if r.Failed() {
			titleSt = failedTitleStyle
		}
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(itemTitle(r)))
		b.WriteByte('\n')

		sub := r.Classification.Reason
		if r.Failed() {
			sub = "failed"
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", r.Lead.Email, sub)))
		b.WriteByte('\n')

		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func truncateLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// wrapParagraphs word-wraps each paragraph separately so blank lines survive.
func wrapParagraphs(text string, width int) string {
	paras := strings.Split(text, "\n\n")
	for i, p := range paras {
		lines := strings.Split(p, "\n")
		for j, l := range lines {
			lines[j] = wordWrap(l, width)
		}
		paras[i] = strings.Join(lines, "\n")
	}
	return strings.Join(paras, "\n\n")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunReviewTUI launches the interactive split-pane review of classified leads.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc
// to return to the run picker.
func RunReviewTUI(results []model.LeadResult, opts Options) (bool, error) {
	p := tea.NewProgram(newReviewModel(results, opts), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(reviewModel)
	return final.wantQuit, nil
}
