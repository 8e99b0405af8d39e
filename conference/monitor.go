package conference

import (
	"sync"
	"time"
)

// InactivityMonitor ends a conference that sits with at most one occupant for
// a full timeout period. Roster snapshots feed it through OnRoster; a snapshot
// with two or more occupants arms (or re-arms) the timer, so any activity
// within the window pushes the deadline out.
type InactivityMonitor struct {
	timeout time.Duration
	end     func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
	alone   bool
}

func NewInactivityMonitor(timeout time.Duration, end func()) *InactivityMonitor {
	return &InactivityMonitor{timeout: timeout, end: end}
}

// Start arms the timer. Calling Start on a running monitor restarts the window.
func (m *InactivityMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.fired {
		return
	}
	m.alone = true
	m.resetLocked()
}

// OnRoster records the latest occupancy. An occupied room pushes the deadline
// out on every snapshot; once the room drains to one occupant the countdown
// runs undisturbed until somebody else shows up.
func (m *InactivityMonitor) OnRoster(roster []Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.fired {
		return
	}
	alone := len(roster) <= 1
	if !alone || !m.alone {
		m.resetLocked()
	}
	m.alone = alone
}

func (m *InactivityMonitor) resetLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.timeout, m.expire)
}

func (m *InactivityMonitor) expire() {
	m.mu.Lock()
	if m.stopped || m.fired {
		m.mu.Unlock()
		return
	}
	if !m.alone {
		// the room was occupied when the window closed; watch another window
		m.resetLocked()
		m.mu.Unlock()
		return
	}
	m.fired = true
	end := m.end
	m.mu.Unlock()

	if end != nil {
		end()
	}
}

// Stop cancels the pending countdown. It is unconditional and safe to call
// any number of times, including before Start and after the timeout fired.
func (m *InactivityMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
