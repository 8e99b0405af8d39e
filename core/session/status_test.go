package session

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	start := time.Date(2021, time.March, 9, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	sess := Session{StartTime: start, EndTime: end}

	completed := sess
	completed.IsCompleted = true

	tests := []struct {
		name        string
		sess        Session
		now         time.Time
		teacher     bool
		wantTiming  TimingStatus
		wantCanJoin bool
	}{
		{name: "teacher before window", sess: sess, now: start.Add(-16 * time.Minute), teacher: true, wantTiming: TimingUpcoming},
		{name: "teacher at window open", sess: sess, now: start.Add(-15 * time.Minute), teacher: true, wantTiming: TimingUpcoming, wantCanJoin: true},
		{name: "teacher mid session", sess: sess, now: start.Add(30 * time.Minute), teacher: true, wantTiming: TimingActive, wantCanJoin: true},
		{name: "teacher at end", sess: sess, now: end, teacher: true, wantTiming: TimingActive, wantCanJoin: true},
		{name: "teacher after end", sess: sess, now: end.Add(time.Second), teacher: true, wantTiming: TimingEnded},

		{name: "student before window", sess: sess, now: start.Add(-10 * time.Minute), wantTiming: TimingUpcoming},
		{name: "student at window open", sess: sess, now: start.Add(-5 * time.Minute), wantTiming: TimingUpcoming, wantCanJoin: true},
		{name: "student at start", sess: sess, now: start, wantTiming: TimingActive, wantCanJoin: true},
		{name: "student after end", sess: sess, now: end.Add(time.Minute), wantTiming: TimingEnded},

		{name: "completed mid session", sess: completed, now: start.Add(30 * time.Minute), teacher: true, wantTiming: TimingActive},
		{name: "completed in window", sess: completed, now: start.Add(-5 * time.Minute), wantTiming: TimingUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Evaluate(tt.sess, tt.now, tt.teacher)
			if st.Timing != tt.wantTiming {
				t.Errorf("Evaluate() timing = %v, want %v", st.Timing, tt.wantTiming)
			}
			if st.CanJoin != tt.wantCanJoin {
				t.Errorf("Evaluate() canJoin = %v, want %v", st.CanJoin, tt.wantCanJoin)
			}
		})
	}
}

func TestEvaluateCompletedNeverJoinable(t *testing.T) {
	start := time.Date(2021, time.March, 9, 14, 0, 0, 0, time.UTC)
	sess := Session{StartTime: start, EndTime: start.Add(time.Hour), IsCompleted: true}

	// sweep the whole timeline in 1min steps, both roles
	for now := start.Add(-time.Hour); now.Before(sess.EndTime.Add(time.Hour)); now = now.Add(time.Minute) {
		for _, teacher := range []bool{true, false} {
			if st := Evaluate(sess, now, teacher); st.CanJoin {
				t.Fatalf("Evaluate() canJoin = true at %v (teacher=%v) on completed session", now, teacher)
			}
		}
	}
}
