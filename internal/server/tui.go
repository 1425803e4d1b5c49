// ABOUTME: Server TUI for displaying editor sessions and export stats
// ABOUTME: Real-time server status display using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ServerTUI manages the server TUI
type ServerTUI struct {
	mu       sync.Mutex
	program  *tea.Program
	closed   bool
	updates  chan ServerStatus
	quitChan chan struct{} // Signal to stop the server
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name     string
	Port     int
	Sessions []SessionInfo
	Exports  int64
	Failures int64
}

// SessionInfo holds session information for display
type SessionInfo struct {
	ID          string
	Slots       int
	Subscribers int
	Idle        time.Duration
}

// tuiModel is the bubbletea model for server TUI
type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
		return m, nil
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	sessionHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	failStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("OP-1 Drum Server"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Server: "))
	b.WriteString(valueStyle.Render(m.status.Name))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Port: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.status.Port)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Uptime: "))
	uptime := time.Since(m.startTime).Round(time.Second)
	b.WriteString(valueStyle.Render(uptime.String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Exports: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.status.Exports)))
	if m.status.Failures > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(" (%d failed)", m.status.Failures)))
	}
	b.WriteString("\n\n")

	b.WriteString(sessionHeaderStyle.Render(fmt.Sprintf("Sessions (%d)", len(m.status.Sessions))))
	b.WriteString("\n\n")

	if len(m.status.Sessions) == 0 {
		b.WriteString(valueStyle.Render("  No open sessions"))
		b.WriteString("\n")
	} else {
		for _, sess := range m.status.Sessions {
			b.WriteString(fmt.Sprintf("  • %s", shortID(sess.ID)))
			b.WriteString(valueStyle.Render(fmt.Sprintf(" (%d/24 slots, %d listening, idle %s)",
				sess.Slots, sess.Subscribers, sess.Idle.Round(time.Second))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// NewServerTUI creates a new server TUI
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName string, port int) error {
	m := tuiModel{
		status: ServerStatus{
			Name:     serverName,
			Port:     port,
			Sessions: []SessionInfo{},
		},
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	t.program = program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(statusMsg(status))
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update to the TUI; it is a no-op once stopped
func (t *ServerTUI) Update(status ServerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI. Safe to call more than once.
func (t *ServerTUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
