package conference

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func occupants(n int) []Participant {
	roster := make([]Participant, n)
	for i := range roster {
		roster[i] = Participant{ID: string(rune('a' + i))}
	}
	return roster
}

func TestInactivityMonitorFiresOnce(t *testing.T) {
	var fired int32
	m := NewInactivityMonitor(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	defer m.Stop()

	m.Start()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)

	// no further firings and late snapshots are ignored
	m.OnRoster(occupants(1))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestInactivityMonitorLoneSnapshotsDoNotExtend(t *testing.T) {
	var fired int32
	m := NewInactivityMonitor(60*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	defer m.Stop()

	m.Start()
	// periodic roster polls of the same lone occupant keep the countdown running
	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		m.OnRoster(occupants(1))
	}
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestInactivityMonitorOccupiedRoomRestarts(t *testing.T) {
	var fired int32
	m := NewInactivityMonitor(50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	defer m.Stop()

	m.Start()
	time.Sleep(25 * time.Millisecond)
	m.OnRoster(occupants(2))

	// the original deadline passes without firing
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	// everyone but one leaves; a fresh full window runs from here
	m.OnRoster(occupants(1))
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestInactivityMonitorStop(t *testing.T) {
	var fired int32
	m := NewInactivityMonitor(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	m.Start()
	m.Stop()
	m.Stop() // unconditional, repeatable
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	// stopping an idle monitor is also fine
	NewInactivityMonitor(time.Minute, nil).Stop()
}
