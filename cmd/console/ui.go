package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/storage"
)

const (
	maxLogLines  = 1000
	historyDepth = 5
)

// scenarioRunner is satisfied by *runner.Controller.
type scenarioRunner interface {
	Run(ctx context.Context, sc runner.Scenario) runner.Result
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	runner scenarioRunner
	ledger storage.Ledger // nil when the ledger is disabled
	events chan tea.Msg
	copy   func(string) error

	scenarios []runner.Scenario
	selected  int
	results   map[string]runner.Result
	history   []storage.Record

	// Run state
	running     string
	cancel      context.CancelFunc
	transitions []runner.Transition
	queue       []runner.Scenario

	spinner  spinner.Model
	logView  viewport.Model
	logLines []string

	width     int
	height    int
	ready     bool
	status    string
	statusErr bool

	// Quit confirmation state
	showQuitModal bool
}

type transitionMsg struct {
	runID      uuid.UUID
	scenario   string
	transition runner.Transition
}

type logLineMsg string

type runDoneMsg struct {
	result    runner.Result
	recordErr error
}

type historyMsg struct {
	scenario string
	records  []storage.Record
	err      error
}

var (
	listPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(1)

	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(r scenarioRunner, ledger storage.Ledger, events chan tea.Msg) ConsoleUI {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = loadingStyle

	logVp := viewport.New(60, 20)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		runner:    r,
		ledger:    ledger,
		events:    events,
		copy:      clipboard.WriteAll,
		scenarios: runner.Catalogue(),
		results:   make(map[string]runner.Result),
		spinner:   sp,
		logView:   logVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(listen(m.events), m.loadHistory())
}

// listen waits for the next event from the harness. It must be re-armed
// after every event it delivers.
func listen(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}

func (m ConsoleUI) current() runner.Scenario {
	return m.scenarios[m.selected]
}

func (m *ConsoleUI) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// start launches sc in the background. Transitions arrive as events;
// the final result arrives as runDoneMsg.
func (m *ConsoleUI) start(sc runner.Scenario) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = sc.Name
	m.transitions = nil
	m.setStatus("", false)
	return tea.Batch(m.spinner.Tick, m.execute(ctx, cancel, sc))
}

func (m ConsoleUI) execute(ctx context.Context, cancel context.CancelFunc, sc runner.Scenario) tea.Cmd {
	r, ledger := m.runner, m.ledger
	return func() tea.Msg {
		defer cancel()
		res := r.Run(ctx, sc)

		var recordErr error
		if ledger != nil {
			recordErr = ledger.Record(context.WithoutCancel(ctx), storage.NewRecord(res))
		}
		return runDoneMsg{result: res, recordErr: recordErr}
	}
}

func (m ConsoleUI) loadHistory() tea.Cmd {
	if m.ledger == nil {
		return nil
	}
	ledger, name := m.ledger, m.current().Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		records, err := ledger.History(ctx, name, historyDepth)
		return historyMsg{scenario: name, records: records, err: err}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.logView.Width = m.logWidth() - 2
		m.logView.Height = max(m.height-3, 1)
		m.renderLog()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.running == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case transitionMsg:
		if msg.scenario == m.running {
			m.transitions = append(m.transitions, msg.transition)
		}
		return m, listen(m.events)

	case logLineMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		m.renderLog()
		return m, listen(m.events)

	case runDoneMsg:
		res := msg.result
		m.results[res.Scenario] = res
		m.transitions = res.Transitions
		m.running = ""
		m.cancel = nil
		if msg.recordErr != nil {
			m.setStatus("Failed to record run: "+msg.recordErr.Error(), true)
		}

		cmds := []tea.Cmd{m.loadHistory()}
		if len(m.queue) > 0 {
			next := m.queue[0]
			m.queue = m.queue[1:]
			cmds = append(cmds, m.start(next))
		}
		return m, tea.Batch(cmds...)

	case historyMsg:
		if msg.scenario != m.current().Name {
			return m, nil
		}
		if msg.err != nil {
			m.setStatus("Failed to load history: "+msg.err.Error(), true)
			return m, nil
		}
		m.history = msg.records
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.showQuitModal = true
		return m, nil

	case "esc":
		if m.cancel != nil {
			m.cancel()
			m.queue = nil
			m.setStatus("Canceling "+m.running+"...", false)
		}
		return m, nil

	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.history = nil
			return m, m.loadHistory()
		}

	case "down", "j":
		if m.selected < len(m.scenarios)-1 {
			m.selected++
			m.history = nil
			return m, m.loadHistory()
		}

	case "enter":
		if m.running == "" {
			cmd := m.start(m.current())
			return m, cmd
		}

	case "a":
		if m.running == "" && len(m.scenarios) > 0 {
			m.queue = append([]runner.Scenario{}, m.scenarios[1:]...)
			cmd := m.start(m.scenarios[0])
			return m, cmd
		}

	case "c":
		res, ok := m.results[m.current().Name]
		if !ok {
			m.setStatus("No run to copy yet", false)
			return m, nil
		}
		report := failureReport(res)
		if report == "" {
			m.setStatus("Last run passed, nothing to copy", false)
			return m, nil
		}
		if err := m.copy(report); err != nil {
			m.setStatus("Failed to copy report: "+err.Error(), true)
			return m, nil
		}
		m.setStatus("Failure report copied to clipboard", false)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "enter", "y", "Y":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}

	default:
		// Keep draining harness events so runs are not blocked behind the modal.
		switch msg.(type) {
		case transitionMsg, logLineMsg, runDoneMsg, historyMsg, spinner.TickMsg:
			m.showQuitModal = false
			next, cmd := m.Update(msg)
			ui := next.(ConsoleUI)
			ui.showQuitModal = true
			return ui, cmd
		}
	}
	return m, nil
}

func (m ConsoleUI) listWidth() int {
	return max(int(float64(m.width)*0.4), 30)
}

func (m ConsoleUI) logWidth() int {
	return max(m.width-m.listWidth()-2, 20)
}

func (m *ConsoleUI) renderLog() {
	width := m.logView.Width
	var content strings.Builder
	for _, line := range m.logLines {
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	m.logView.SetContent(content.String())
	m.logView.GotoBottom()
}

func (m ConsoleUI) statusMark(name string) string {
	if name == m.running {
		return m.spinner.View()
	}
	res, ok := m.results[name]
	switch {
	case !ok:
		return " "
	case res.Err() == nil:
		return passStyle.Render("✓")
	default:
		return errorStyle.Render("✗")
	}
}

func (m ConsoleUI) renderList(width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PEREC VERIFY") + "\n\n")

	for i, sc := range m.scenarios {
		mark := m.statusMark(sc.Name)
		if i == m.selected {
			content.WriteString(mark + " " + selectedItemStyle.Render("▶ "+sc.Name) + "\n")
		} else {
			content.WriteString(mark + "   " + sc.Name + "\n")
		}
	}
	content.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", max(width-4, 1))) + "\n\n")

	sc := m.current()
	if sc.Description != "" {
		content.WriteString(wordwrap.String(sc.Description, width-4) + "\n\n")
	}

	if m.running != "" {
		content.WriteString(loadingStyle.Render(m.spinner.View()+" Running "+m.running) + "\n")
		content.WriteString(writeTransitions(m.transitions))
	} else if res, ok := m.results[sc.Name]; ok {
		content.WriteString(writeResult(res, width-4))
	}

	if m.ledger != nil {
		content.WriteString("\n" + titleStyle.Render("HISTORY") + "\n")
		if len(m.history) == 0 {
			content.WriteString(promptStyle.Render("No recorded runs") + "\n")
		}
		for _, rec := range m.history {
			content.WriteString(formatRecord(rec) + "\n")
		}
	}

	if m.status != "" {
		style := promptStyle
		if m.statusErr {
			style = errorStyle
		}
		content.WriteString("\n" + style.Render(wordwrap.String(m.status, width-4)) + "\n")
	}

	content.WriteString("\n" + promptStyle.Render(wordwrap.String(
		"↑/↓ select • Enter run • a run all • Esc cancel • c copy failure • q quit", width-4)))
	return content.String()
}

func writeTransitions(ts []runner.Transition) string {
	var content strings.Builder
	for _, t := range ts {
		mark := passStyle.Render("→")
		if t.To == runner.StateFailed {
			mark = errorStyle.Render("✗")
		}
		content.WriteString(fmt.Sprintf("  %s %-16s %s\n", mark, t.To, promptStyle.Render(t.Elapsed.Round(time.Millisecond).String())))
	}
	return content.String()
}

func writeResult(res runner.Result, width int) string {
	var content strings.Builder
	if err := res.Err(); err != nil {
		content.WriteString(errorStyle.Render("FAILED") + fmt.Sprintf(" after %s\n", res.Duration.Round(time.Millisecond)))
		content.WriteString(writeTransitions(res.Transitions))
		content.WriteString("\n" + errorStyle.Render(wordwrap.String(err.Error(), width)) + "\n")
		return content.String()
	}
	content.WriteString(passStyle.Render("PASSED") + fmt.Sprintf(" in %s\n", res.Duration.Round(time.Millisecond)))
	content.WriteString(writeTransitions(res.Transitions))
	if res.Artifact != "" {
		content.WriteString("\nSnapshot: " + res.Artifact + "\n")
	}
	return content.String()
}

func (m ConsoleUI) renderQuitModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	if m.running != "" {
		content.WriteString("A run is in progress and will be canceled.")
	} else {
		content.WriteString("Are you sure you want to quit?")
	}
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	listWidth := m.listWidth()
	listPanel := listPanelStyle.Width(listWidth).Height(m.height - 1).Render(m.renderList(listWidth))
	logPanel := logPanelStyle.Width(m.logWidth()).Height(m.height - 1).Render(m.logView.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPanel, logPanel)
}
