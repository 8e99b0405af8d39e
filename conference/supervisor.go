package conference

import (
	"context"
	"time"
)

// Supervisor ties an Adapter to an InactivityMonitor for a single room: the
// adapter feeds roster snapshots to the monitor, and the monitor ends the
// watch when the room sits empty (or with a lone occupant) for the whole
// timeout.
type Supervisor struct {
	adapter *Adapter
	monitor *InactivityMonitor
}

// NewSupervisor builds a supervisor; onIdle runs at most once, when the room
// has been inactive for timeout. Options.OnRoster, if set, still fires.
func NewSupervisor(opts Options, timeout time.Duration, onIdle func()) *Supervisor {
	sup := &Supervisor{}
	sup.monitor = NewInactivityMonitor(timeout, onIdle)

	next := opts.OnRoster
	opts.OnRoster = func(roster []Participant) {
		sup.monitor.OnRoster(roster)
		if next != nil {
			next(roster)
		}
	}
	sup.adapter = NewAdapter(opts)
	return sup
}

// Watch attaches to the room and arms the inactivity countdown.
func (s *Supervisor) Watch(ctx context.Context, room string, info UserInfo) error {
	if err := s.adapter.Attach(ctx, room, info); err != nil {
		return err
	}
	s.monitor.Start()
	return nil
}

func (s *Supervisor) Mode() Mode { return s.adapter.Mode() }

// Stop tears the watch down; safe to call repeatedly and after onIdle fired.
func (s *Supervisor) Stop() {
	s.monitor.Stop()
	s.adapter.Dispose()
}
