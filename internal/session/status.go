package session

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

const (
	statusConnected = "Database Connected"
	statusSaving    = "Saving game..."
	statusFailed    = "Error saving game"
)

// statusIndicator tracks the persistence banner. An error state reverts to
// connected after the configured delay unless something else replaces it
// first.
type statusIndicator struct {
	clock  quartz.Clock
	revert time.Duration
	notify func(Status)

	mu      sync.Mutex
	current Status
	gen     uint64
	timer   *quartz.Timer
}

func newStatusIndicator(clock quartz.Clock, revert time.Duration, notify func(Status)) *statusIndicator {
	return &statusIndicator{
		clock:   clock,
		revert:  revert,
		notify:  notify,
		current: Status{Message: statusConnected, Kind: StatusConnected},
	}
}

func (s *statusIndicator) Set(status Status) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.current = status
	if status.Kind == StatusError {
		gen := s.gen
		s.timer = s.clock.AfterFunc(s.revert, func() { s.expire(gen) }, "status")
	}
	s.mu.Unlock()

	s.notify(status)
}

func (s *statusIndicator) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.gen++
	s.current = Status{Message: statusConnected, Kind: StatusConnected}
	status := s.current
	s.mu.Unlock()

	s.notify(status)
}

func (s *statusIndicator) Current() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *statusIndicator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
