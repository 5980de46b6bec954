package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/century/internal/session"
)

// Messages delivered from the session into the program
type (
	notifyMsg struct {
		text     string
		severity session.Severity
	}
	statusMsg  session.Status
	viewMsg    session.View
	confirmMsg struct {
		prompt string
		reply  chan bool
	}
)

// sender is the part of *tea.Program the bridge needs
type sender interface {
	Send(msg tea.Msg)
}

// Bridge turns session callbacks into Bubble Tea messages. It implements
// session.Notifier, session.Confirmer and session.Listener. Calls made
// before Attach or after Detach are dropped and confirmations are refused.
type Bridge struct {
	mu      sync.Mutex
	program sender
	done    chan struct{}
}

func NewBridge() *Bridge {
	return &Bridge{done: make(chan struct{})}
}

// Attach starts forwarding to p
func (b *Bridge) Attach(p sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

// Detach stops forwarding and releases any pending confirmation.
func (b *Bridge) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.program == nil {
		return
	}
	b.program = nil
	close(b.done)
}

func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p == nil {
		return false
	}
	p.Send(msg)
	return true
}

func (b *Bridge) Notify(message string, severity session.Severity) {
	b.send(notifyMsg{text: message, severity: severity})
}

func (b *Bridge) Status(status session.Status) {
	b.send(statusMsg(status))
}

func (b *Bridge) SessionChanged(view session.View) {
	b.send(viewMsg(view))
}

// Confirm shows prompt and blocks until the user answers.
func (b *Bridge) Confirm(prompt string) bool {
	reply := make(chan bool, 1)
	if !b.send(confirmMsg{prompt: prompt, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-b.done:
		return false
	}
}
