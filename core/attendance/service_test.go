package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

type fakeRepo struct {
	records       map[string]Record // key: sessionID+"/"+studentID
	sessionCourse map[string]string // sessionID -> courseID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:       make(map[string]Record),
		sessionCourse: make(map[string]string),
	}
}

func recKey(sessionID, studentID string) string { return sessionID + "/" + studentID }

func (r *fakeRepo) UpsertRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error) {
	rec.ID = recKey(rec.SessionID, rec.StudentID)
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *fakeRepo) GetRecord(ctx context.Context, sessionID, studentID string, exec ...core.DBExecutor) (Record, error) {
	rec, ok := r.records[recKey(sessionID, studentID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) QueryRecords(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if filter.SessionID != "" && rec.SessionID != filter.SessionID {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && r.sessionCourse[rec.SessionID] != filter.CourseID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeRepo) CountSessions(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	count := 0
	for _, cid := range r.sessionCourse {
		if cid == courseID {
			count++
		}
	}
	return count, nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func TestAttendanceService(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2021, 5, 10, 9, 0, 0, 0, time.UTC)

	setNow := func(t *testing.T, now time.Time) {
		orig := nowFunc
		nowFunc = func() time.Time { return now }
		t.Cleanup(func() { nowFunc = orig })
	}

	t.Run("join marks present", func(t *testing.T) {
		setNow(t, base)
		svc := NewService(newFakeRepo(), nopLogger{})

		rec, err := svc.MarkJoin(ctx, "sess1", "student1")
		require.NoError(t, err)
		assert.Equal(t, StatusPresent, rec.Status)
		assert.Equal(t, base, rec.JoinedAt.Time)
		assert.False(t, rec.MarkedBy.Valid)
	})

	t.Run("rejoin keeps first join time", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nopLogger{})

		setNow(t, base)
		_, err := svc.MarkJoin(ctx, "sess1", "student1")
		require.NoError(t, err)

		setNow(t, base.Add(20*time.Minute))
		rec, err := svc.MarkJoin(ctx, "sess1", "student1")
		require.NoError(t, err)
		assert.Equal(t, base, rec.JoinedAt.Time)
	})

	t.Run("override wins over later joins", func(t *testing.T) {
		setNow(t, base)
		svc := NewService(newFakeRepo(), nopLogger{})

		_, err := svc.Override(ctx, "sess1", "student1", "teacher1", StatusExcused)
		require.NoError(t, err)

		rec, err := svc.MarkJoin(ctx, "sess1", "student1")
		require.NoError(t, err)
		assert.Equal(t, StatusExcused, rec.Status)
		assert.Equal(t, "teacher1", rec.MarkedBy.String)
	})

	t.Run("override rejects unknown status", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nopLogger{})
		_, err := svc.Override(ctx, "sess1", "student1", "teacher1", Status("vanished"))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("course stats", func(t *testing.T) {
		setNow(t, base)
		repo := newFakeRepo()
		repo.sessionCourse = map[string]string{
			"sess1": "course1", "sess2": "course1", "sess3": "course1", "sess4": "course1",
			"other": "course2",
		}
		svc := NewService(repo, nopLogger{})

		_, err := svc.MarkJoin(ctx, "sess1", "student1")
		require.NoError(t, err)
		_, err = svc.MarkJoin(ctx, "sess2", "student1")
		require.NoError(t, err)
		_, err = svc.Override(ctx, "sess3", "student1", "teacher1", StatusLate)
		require.NoError(t, err)
		_, err = svc.MarkJoin(ctx, "other", "student1")
		require.NoError(t, err)

		stats, err := svc.CourseStats(ctx, "course1", "student1")
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 2, stats.Present)
		assert.Equal(t, 1, stats.Late)
		assert.InDelta(t, 0.75, stats.Rate, 1e-9)
	})
}
