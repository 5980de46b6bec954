package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/century/internal/session"
	"github.com/lox/century/internal/store"
)

// Controller is the part of *session.Controller the terminal drives
type Controller interface {
	AddPlayer(name string) error
	RemovePlayer(name string) error
	StartSession(names ...string) error
	EndSession() error
	SelectChecker(name string) error
	SubmitCheck(checker string, sums map[string]int) (session.Report, error)
	UndoLastRound() error
	Save(ctx context.Context) error
	ListGames(ctx context.Context) ([]store.Metadata, error)
	LoadGame(ctx context.Context, id string) error
	DeleteGame(ctx context.Context, id string) error
	View() session.View
}

// Results of commands run off the update loop
type (
	doneMsg  struct{ err error }
	gamesMsg []store.Metadata
)

// Model is the Bubble Tea model for a scorekeeping session
type Model struct {
	ctrl   Controller
	logger *log.Logger
	ctx    context.Context

	logViewport viewport.Model
	input       textinput.Model

	gameLog   []string
	view      session.View
	status    session.Status
	lastGames []store.Metadata
	confirm   *confirmMsg
	busy      bool
	quitting  bool

	width  int
	height int
}

// NewModel creates a model bound to ctrl. ctx bounds store calls.
func NewModel(ctx context.Context, ctrl Controller, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "add <name> to set up players, help for commands"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 100
	ti.PromptStyle = PromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	v := ctrl.View()
	return &Model{
		ctrl:        ctrl,
		logger:      logger.WithPrefix("tui"),
		ctx:         ctx,
		logViewport: vp,
		input:       ti,
		view:        v,
		status:      v.Status,
		gameLog:     []string{HeaderStyle.Render(" Century ") + " " + InfoStyle.Render("First to 100 points loses!")},
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case notifyMsg:
		m.addNotification(msg.text, msg.severity)

	case statusMsg:
		m.status = session.Status(msg)

	case viewMsg:
		m.view = session.View(msg)
		m.status = m.view.Status

	case confirmMsg:
		if m.confirm != nil {
			// one prompt at a time; the controller never asks twice at once
			msg.reply <- false
			break
		}
		m.confirm = &msg
		m.addLogEntry(WarningStyle.Render(msg.prompt + " [y/N]"))

	case gamesMsg:
		m.busy = false
		m.lastGames = msg
		m.addLogEntry(renderGames(msg))

	case doneMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Debug("Command failed", "error", msg.err)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, m.quit()
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if cmd := m.handleLine(line); cmd != nil {
				cmds = append(cmds, cmd)
			}
			if m.quitting {
				return m, tea.Batch(cmds...)
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.confirm != nil {
		m.confirm.reply <- false
		m.confirm = nil
	}
	return tea.Sequence(tea.ClearScreen, tea.Quit)
}

// handleLine interprets one line of input and returns the command to run.
func (m *Model) handleLine(line string) tea.Cmd {
	if m.confirm != nil {
		answer := strings.ToLower(line)
		ok := answer == "y" || answer == "yes"
		m.confirm.reply <- ok
		m.confirm = nil
		if !ok {
			m.addLogEntry(InfoStyle.Render("Cancelled"))
		}
		return nil
	}
	if line == "" {
		return nil
	}

	m.addLogEntry(InfoStyle.Render("> " + line))
	cmd, err := ParseCommand(line)
	if err != nil {
		m.addLogEntry(ErrorStyle.Render(err.Error() + " (try help)"))
		return nil
	}

	switch cmd.Name {
	case "help":
		m.addLogEntry(helpText)
		return nil
	case "cards":
		m.addLogEntry(renderCards(cmd.Args))
		return nil
	case "table":
		m.addLogEntry(renderScoreTable(m.view.Table, 0))
		return nil
	case "quit":
		return m.quit()
	}

	if m.busy {
		m.addLogEntry(WarningStyle.Render("Still working on the last command"))
		return nil
	}
	run, err := m.dispatch(cmd)
	if err != nil {
		m.addLogEntry(ErrorStyle.Render(err.Error()))
		return nil
	}
	m.busy = true
	return run
}

// dispatch maps a command to a controller call. Calls run off the update
// loop because the controller may block on a confirmation.
func (m *Model) dispatch(cmd Command) (tea.Cmd, error) {
	ctrl := m.ctrl
	ctx := m.ctx
	joined := strings.Join(cmd.Args, " ")

	done := func(fn func() error) tea.Cmd {
		return func() tea.Msg { return doneMsg{err: fn()} }
	}

	switch cmd.Name {
	case "add":
		if joined == "" {
			return nil, errors.New("usage: add <name>")
		}
		return done(func() error { return ctrl.AddPlayer(joined) }), nil
	case "remove":
		if joined == "" {
			return nil, errors.New("usage: remove <name>")
		}
		return done(func() error { return ctrl.RemovePlayer(joined) }), nil
	case "start":
		names := cmd.Args
		return done(func() error { return ctrl.StartSession(names...) }), nil
	case "select":
		return done(func() error { return ctrl.SelectChecker(joined) }), nil
	case "check":
		checker, sums, err := ParseCheck(cmd.Args, activeNames(m.view))
		if err != nil {
			return nil, err
		}
		return done(func() error {
			_, err := ctrl.SubmitCheck(checker, sums)
			return err
		}), nil
	case "undo":
		return done(ctrl.UndoLastRound), nil
	case "end":
		return done(ctrl.EndSession), nil
	case "save":
		return done(func() error { return ctrl.Save(ctx) }), nil
	case "games":
		return func() tea.Msg {
			games, err := ctrl.ListGames(ctx)
			if err != nil {
				return doneMsg{err: err}
			}
			return gamesMsg(games)
		}, nil
	case "load", "delete":
		id, err := m.resolveGame(cmd.Args)
		if err != nil {
			return nil, err
		}
		if cmd.Name == "load" {
			return done(func() error { return ctrl.LoadGame(ctx, id) }), nil
		}
		return done(func() error { return ctrl.DeleteGame(ctx, id) }), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
}

// resolveGame accepts a number from the last games listing or a full id.
func (m *Model) resolveGame(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: load|delete <#|id> (run games first to list)")
	}
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > len(m.lastGames) {
			return "", fmt.Errorf("no saved game #%d; run games to list them", n)
		}
		return m.lastGames[n-1].ID, nil
	}
	return args[0], nil
}

func activeNames(v session.View) []string {
	var names []string
	for _, p := range v.Active() {
		names = append(names, p.Name)
	}
	return names
}

func (m *Model) addNotification(text string, sev session.Severity) {
	style := InfoStyle
	switch sev {
	case session.SeveritySuccess:
		style = SuccessStyle
	case session.SeverityError:
		style = ErrorStyle
	}
	for _, line := range strings.Split(text, "\n") {
		m.addLogEntry(style.Render(line))
	}
}

// addLogEntry appends to the log and scrolls to the newest line
func (m *Model) addLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := PaneStyle.
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebar()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := PaneStyle.
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	logPane := PaneStyle.
		Width(logWidth).
		Height(paneHeight).
		Render(m.logViewport.View())

	top := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, top, actionPane)
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(renderStatus(m.status))
	b.WriteString("\n")
	if m.view.User != "" {
		b.WriteString(InfoStyle.Render("Signed in as " + m.view.User))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.view.Phase {
	case session.PhaseUninitialized:
		b.WriteString(HandInfoStyle.Render("Players"))
		b.WriteString("\n")
		if len(m.view.Setup) == 0 {
			b.WriteString(InfoStyle.Render("  none yet"))
			b.WriteString("\n")
		}
		for _, name := range m.view.Setup {
			b.WriteString("  " + name + "\n")
		}
	default:
		b.WriteString(HandInfoStyle.Render(fmt.Sprintf("Round %d", len(m.view.Rounds)+1)))
		if !m.view.StartTime.IsZero() {
			b.WriteString(InfoStyle.Render(" · started " + m.view.StartTime.Format(time.Kitchen)))
		}
		b.WriteString("\n")
		b.WriteString(renderStandings(m.view))
		if m.view.PendingChecker != "" {
			b.WriteString("\n")
			b.WriteString(WarningStyle.Render("CHECK called by " + m.view.PendingChecker))
		}
		if m.view.Winner != "" {
			b.WriteString("\n")
			b.WriteString(WinnerStyle.Render(m.view.Winner + " WINS THE GAME!"))
		}
		b.WriteString("\n\n")
		b.WriteString(renderScoreTable(m.view.Table, 5))
	}

	b.WriteString("\n\n")
	b.WriteString(CardStyle.Render("A=1 J=0 Q/K=20 others face"))
	return b.String()
}

func (m *Model) renderActionPane() string {
	var b strings.Builder
	switch {
	case m.confirm != nil:
		b.WriteString(WarningStyle.Render(m.confirm.prompt))
		m.input.Placeholder = "y to confirm, anything else to cancel"
	case m.view.Phase == session.PhaseUninitialized:
		m.input.Placeholder = "add <name>, start, games, help"
	case m.view.Phase == session.PhaseConcluded:
		m.input.Placeholder = "undo, save, end, table"
	default:
		m.input.Placeholder = "check <checker> name=sum ... | undo | save | end"
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("Enter to submit • PgUp/PgDn scroll • Ctrl+C to quit"))
	return b.String()
}

// Log returns the plain log lines, for tests
func (m *Model) Log() []string {
	out := make([]string, len(m.gameLog))
	copy(out, m.gameLog)
	return out
}
