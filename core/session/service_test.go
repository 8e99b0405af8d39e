package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

// fakeRepo is a single-session Repository with scriptable write failures.
type fakeRepo struct {
	sess        Session
	failUpdates int   // fail this many UpdateSession calls...
	updateErr   error // ...with this error
	updates     int
}

func (r *fakeRepo) CreateSession(_ context.Context, sess Session, _ ...core.DBExecutor) (Session, error) {
	sess.ID = "sess-1"
	r.sess = sess
	return sess, nil
}

func (r *fakeRepo) GetSession(_ context.Context, id string, _ ...core.DBExecutor) (Session, error) {
	if id != r.sess.ID {
		return Session{}, ErrNotFound
	}
	return r.sess, nil
}

func (r *fakeRepo) QuerySessions(_ context.Context, _ *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Session, error) {
	return []Session{r.sess}, nil
}

func (r *fakeRepo) UpdateSession(_ context.Context, sess Session, _ ...core.DBExecutor) (Session, error) {
	r.updates++
	if r.failUpdates > 0 {
		r.failUpdates--
		return Session{}, r.updateErr
	}
	sess.Version++
	r.sess = sess
	return sess, nil
}

func (r *fakeRepo) DeleteSessionsByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	if len(ids) > 0 && ids[0] == r.sess.ID {
		r.sess = Session{}
		return 1, nil
	}
	return 0, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var (
	testTeacher = user.User{ID: "teacher-1", Roles: []string{user.RoleTeacher}}
	testStudent = user.User{ID: "student-1", Roles: []string{user.RoleStudent}}
)

func newTestService(t *testing.T, start, end time.Time) (*service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{
		sess: Session{
			ID:        "sess-1",
			CourseID:  "course-1",
			TeacherID: testTeacher.ID,
			Title:     "Algebra",
			StartTime: start,
			EndTime:   end,
		},
	}
	conf := &core.Config{Conference: core.ConferenceConfig{Domain: "meet.jit.si"}}
	svc := NewService(repo, nopLogger{}, conf).(*service)
	return svc, repo
}

func at(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestServiceStart(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2021, time.March, 9, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	defer func() { nowFunc = time.Now }()

	t.Run("student cannot start", func(t *testing.T) {
		svc, _ := newTestService(t, start, end)
		nowFunc = at(start)
		if _, err := svc.Start(ctx, testStudent, "sess-1"); errors.Cause(err) != ErrForbidden {
			t.Errorf("Start() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("too early is not joinable", func(t *testing.T) {
		svc, _ := newTestService(t, start, end)
		nowFunc = at(start.Add(-20 * time.Minute))
		_, err := svc.Start(ctx, testTeacher, "sess-1")
		nj, ok := IsNotJoinable(err)
		if !ok {
			t.Fatalf("Start() error = %v, want NotJoinableError", err)
		}
		if nj.Remaining != 5*time.Minute {
			t.Errorf("NotJoinableError.Remaining = %v, want 5m", nj.Remaining)
		}
		if !strings.Contains(nj.Error(), "5m") {
			t.Errorf("NotJoinableError.Error() = %q, want remaining time in message", nj.Error())
		}
	})

	t.Run("within window persists room identity", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		nowFunc = at(start.Add(-10 * time.Minute))
		info, err := svc.Start(ctx, testTeacher, "sess-1")
		if err != nil {
			t.Fatalf("Start() failed: %v", err)
		}
		if info.MeetingID == "" || info.VideoLink == "" {
			t.Fatalf("Start() = %+v, want non-empty join info", info)
		}
		if !repo.sess.IsActive {
			t.Error("Start() did not persist isActive")
		}
		if repo.sess.MeetingID.String != info.MeetingID {
			t.Errorf("persisted meetingID = %q, want %q", repo.sess.MeetingID.String, info.MeetingID)
		}
		if !strings.HasPrefix(info.VideoLink, "https://meet.jit.si/") {
			t.Errorf("videoLink = %q, want provider link", info.VideoLink)
		}

		// restart keeps the same room
		info2, err := svc.Start(ctx, testTeacher, "sess-1")
		if err != nil {
			t.Fatalf("Start() restart failed: %v", err)
		}
		if info2.MeetingID != info.MeetingID {
			t.Errorf("restart minted a new room: %q != %q", info2.MeetingID, info.MeetingID)
		}
	})

	t.Run("persistence failure falls back to synthesized room", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		repo.failUpdates = 10
		repo.updateErr = errors.New("connection refused")
		nowFunc = at(start)

		info, err := svc.Start(ctx, testTeacher, "sess-1")
		if err != nil {
			t.Fatalf("Start() surfaced a downstream failure: %v", err)
		}
		if info.MeetingID == "" || info.VideoLink == "" {
			t.Fatalf("Start() = %+v, want synthesized join info", info)
		}
		if !roomIDRegex.MatchString(info.MeetingID) {
			t.Errorf("synthesized meetingID %q breaks room format", info.MeetingID)
		}
		for _, marker := range disallowedRoomMarkers {
			if strings.Contains(strings.ToLower(info.MeetingID), marker) {
				t.Errorf("synthesized meetingID %q contains gating marker %q", info.MeetingID, marker)
			}
		}
	})

	t.Run("version conflict is retried once", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		repo.failUpdates = 1
		repo.updateErr = ErrVersionConflict
		nowFunc = at(start)

		if _, err := svc.Start(ctx, testTeacher, "sess-1"); err != nil {
			t.Fatalf("Start() failed after conflict: %v", err)
		}
		if repo.updates != 2 {
			t.Errorf("UpdateSession called %d times, want 2", repo.updates)
		}
		if !repo.sess.IsActive {
			t.Error("retried write lost isActive")
		}
	})

	t.Run("completed session cannot be started", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		repo.sess.IsCompleted = true
		nowFunc = at(start)
		_, err := svc.Start(ctx, testTeacher, "sess-1")
		if nj, ok := IsNotJoinable(err); !ok || !nj.Completed {
			t.Errorf("Start() error = %v, want completed NotJoinableError", err)
		}
	})
}

func TestServiceJoin(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2021, time.March, 9, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	defer func() { nowFunc = time.Now }()

	t.Run("student outside window", func(t *testing.T) {
		svc, _ := newTestService(t, start, end)
		nowFunc = at(start.Add(-10 * time.Minute))
		if _, err := svc.Join(ctx, testStudent, "sess-1"); !func() bool { _, ok := IsNotJoinable(err); return ok }() {
			t.Errorf("Join() error = %v, want NotJoinableError", err)
		}
	})

	t.Run("student inside window", func(t *testing.T) {
		svc, _ := newTestService(t, start, end)
		nowFunc = at(start.Add(-3 * time.Minute))
		info, err := svc.Join(ctx, testStudent, "sess-1")
		if err != nil {
			t.Fatalf("Join() failed: %v", err)
		}
		if info.MeetingID == "" {
			t.Error("Join() returned empty meetingID")
		}
	})

	t.Run("active session returns existing room", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		nowFunc = at(start)
		hostInfo, err := svc.Start(ctx, testTeacher, "sess-1")
		if err != nil {
			t.Fatalf("Start() failed: %v", err)
		}
		info, err := svc.Join(ctx, testStudent, "sess-1")
		if err != nil {
			t.Fatalf("Join() failed: %v", err)
		}
		if info.MeetingID != hostInfo.MeetingID {
			t.Errorf("Join() meetingID = %q, want host's %q", info.MeetingID, hostInfo.MeetingID)
		}
		if repo.updates != 1 {
			t.Errorf("Join() on active session wrote %d times, want no extra writes", repo.updates-1)
		}
	})
}

func TestServiceEndComplete(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2021, time.March, 9, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	defer func() { nowFunc = time.Now }()
	nowFunc = at(start.Add(30 * time.Minute))

	t.Run("student cannot end", func(t *testing.T) {
		svc, _ := newTestService(t, start, end)
		if _, err := svc.End(ctx, testStudent, "sess-1", false); errors.Cause(err) != ErrForbidden {
			t.Errorf("End() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("end without completing allows restart", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		if _, err := svc.Start(ctx, testTeacher, "sess-1"); err != nil {
			t.Fatalf("Start() failed: %v", err)
		}
		sess, err := svc.End(ctx, testTeacher, "sess-1", false)
		if err != nil {
			t.Fatalf("End() failed: %v", err)
		}
		if sess.IsActive || sess.IsCompleted {
			t.Errorf("End() = active=%v completed=%v, want inactive and not completed", sess.IsActive, sess.IsCompleted)
		}
		if _, err = svc.Start(ctx, testTeacher, "sess-1"); err != nil {
			t.Errorf("restart after End() failed: %v", err)
		}
		if !repo.sess.IsActive {
			t.Error("restart did not re-activate")
		}
	})

	t.Run("complete is idempotent", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		if _, err := svc.Complete(ctx, testTeacher, "sess-1", "https://recordings.test/r1"); err != nil {
			t.Fatalf("Complete() failed: %v", err)
		}
		writes := repo.updates
		sess, err := svc.Complete(ctx, testTeacher, "sess-1", "")
		if err != nil {
			t.Fatalf("second Complete() failed: %v", err)
		}
		if !sess.IsCompleted {
			t.Error("second Complete() lost isCompleted")
		}
		if repo.updates != writes {
			t.Error("second Complete() wrote again; want no-op")
		}
		if repo.sess.RecordingURL.String != "https://recordings.test/r1" {
			t.Errorf("recordingURL = %q, want persisted value", repo.sess.RecordingURL.String)
		}
	})

	t.Run("end persistence failure is surfaced", func(t *testing.T) {
		svc, repo := newTestService(t, start, end)
		repo.failUpdates = 10
		repo.updateErr = errors.New("connection refused")
		if _, err := svc.End(ctx, testTeacher, "sess-1", true); err == nil {
			t.Error("End() swallowed a persistence failure; bookkeeping writes must be honest")
		}
	})
}
