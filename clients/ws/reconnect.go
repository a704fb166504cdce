package ws

import (
	"sync"
	"time"
)

// State is the connection state of a client channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// ReconnectionManager is the client-side connection state machine.
//
// disconnected → connecting → connected; a drop moves connected →
// reconnecting, which retries with delay base×2^(attempt−1) up to
// maxAttempts, then error. A successful retry returns to connected and
// resets the attempt counter.
type ReconnectionManager struct {
	mu          sync.Mutex
	base        time.Duration
	maxAttempts int
	attempt     int
	state       State
	onChange    func(State)
}

// NewReconnectionManager creates a manager in the disconnected state.
// onChange may be nil; it is invoked outside the lock on every transition.
func NewReconnectionManager(base time.Duration, maxAttempts int, onChange func(State)) *ReconnectionManager {
	return &ReconnectionManager{
		base:        base,
		maxAttempts: maxAttempts,
		state:       StateDisconnected,
		onChange:    onChange,
	}
}

// State returns the current state.
func (m *ReconnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the current retry attempt counter.
func (m *ReconnectionManager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Connecting marks the initial dial in progress.
func (m *ReconnectionManager) Connecting() {
	m.transition(StateConnecting)
}

// Connected marks a successful (re)connection and resets the attempt counter.
func (m *ReconnectionManager) Connected() {
	m.mu.Lock()
	m.attempt = 0
	m.mu.Unlock()
	m.transition(StateConnected)
}

// Dropped records a channel drop and returns the backoff delay before the
// next attempt. ok is false once the attempt ceiling is exhausted, at which
// point the state is error.
func (m *ReconnectionManager) Dropped() (delay time.Duration, ok bool) {
	m.mu.Lock()
	m.attempt++
	attempt := m.attempt
	exhausted := attempt > m.maxAttempts
	m.mu.Unlock()

	if exhausted {
		m.transition(StateError)
		return 0, false
	}
	m.transition(StateReconnecting)
	return m.base << (attempt - 1), true
}

// Reset returns the machine to disconnected, e.g. after an explicit leave.
func (m *ReconnectionManager) Reset() {
	m.mu.Lock()
	m.attempt = 0
	m.mu.Unlock()
	m.transition(StateDisconnected)
}

func (m *ReconnectionManager) transition(next State) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(next)
	}
}
