package session

import "fmt"

// Severity classifies a user-facing notification
type Severity int

const (
	SeveritySuccess Severity = iota
	SeverityError
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// StatusKind is the state of the persistence indicator
type StatusKind int

const (
	StatusConnected StatusKind = iota
	StatusSaving
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusSaving:
		return "saving"
	case StatusError:
		return "error"
	default:
		return "connected"
	}
}

func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StatusKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "connected":
		*k = StatusConnected
	case "saving":
		*k = StatusSaving
	case "error":
		*k = StatusError
	default:
		return fmt.Errorf("unknown status kind %q", text)
	}
	return nil
}

// Status is the persistence indicator shown alongside the game
type Status struct {
	Message string     `json:"message"`
	Kind    StatusKind `json:"kind"`
}

// Notifier receives toasts and persistence status changes.
type Notifier interface {
	Notify(message string, severity Severity)
	Status(status Status)
}

// Confirmer is asked before any destructive action. It may block until the
// user answers; the controller never holds its lock while waiting.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Listener is told about every change to the visible session state.
type Listener interface {
	SessionChanged(view View)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AutoConfirm answers yes to every prompt
var AutoConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

type nopNotifier struct{}

func (nopNotifier) Notify(string, Severity) {}
func (nopNotifier) Status(Status)           {}
