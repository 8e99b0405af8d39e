package session

import "time"

type TimingStatus string

const (
	TimingUpcoming TimingStatus = "upcoming"
	TimingActive   TimingStatus = "active"
	TimingEnded    TimingStatus = "ended"
)

// Join windows: how long before StartTime each role may enter the room.
const (
	TeacherJoinWindow = 15 * time.Minute
	StudentJoinWindow = 5 * time.Minute
)

// Status is a Session's derived timing state and join eligibility.
type Status struct {
	Timing  TimingStatus `json:"timing_status"`
	CanJoin bool         `json:"can_join"`
}

// Evaluate computes a Session's timing state and role-specific join eligibility
// at `now`. It is pure: the caller is expected to re-evaluate on a fixed poll
// interval rather than cache the result.
func Evaluate(sess Session, now time.Time, teacher bool) Status {
	var st Status

	switch {
	case now.Before(sess.StartTime):
		st.Timing = TimingUpcoming
	case now.After(sess.EndTime):
		st.Timing = TimingEnded
	default:
		st.Timing = TimingActive
	}

	if sess.IsCompleted {
		return st // CanJoin stays false once completed, regardless of timing
	}

	window := StudentJoinWindow
	if teacher {
		window = TeacherJoinWindow
	}
	opens := sess.StartTime.Add(-window)
	st.CanJoin = !now.Before(opens) && !now.After(sess.EndTime)
	return st
}

// joinOpensIn returns how long until the join window opens for the role; zero
// or negative when it is already open (or past).
func joinOpensIn(sess Session, now time.Time, teacher bool) time.Duration {
	window := StudentJoinWindow
	if teacher {
		window = TeacherJoinWindow
	}
	return sess.StartTime.Add(-window).Sub(now)
}
