package session

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		// QuerySessions applies AND operation on available QueryFilter fields.
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
		// UpdateSession writes the session iff the stored Version matches
		// sess.Version; ErrVersionConflict otherwise. The write bumps Version.
		UpdateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		DeleteSessionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, ns NewSession) (Session, error)
		GetByID(ctx context.Context, id string) (Session, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		Update(ctx context.Context, actor user.User, id string, us UpdateSession) (Session, error)
		Delete(ctx context.Context, actor user.User, ids ...string) error

		// Status recomputes the session's timing state and the actor's join
		// eligibility; pure with respect to `now`, meant to be polled.
		Status(ctx context.Context, actor user.User, id string) (Session, Status, error)

		// Start opens the room as the host. Downstream failures are absorbed:
		// the caller always gets a joinable room (fallback synthesis), never a
		// hard error, unless the actor is not allowed or the window is closed.
		Start(ctx context.Context, actor user.User, id string) (JoinInfo, error)
		// Join enters the room as a participant, with the same fallback policy.
		Join(ctx context.Context, actor user.User, id string) (JoinInfo, error)
		// End stops the meeting; completed additionally seals the session.
		// Persistence failures here are surfaced: silently losing the state
		// transition would corrupt session bookkeeping.
		End(ctx context.Context, actor user.User, id string, completed bool) (Session, error)
		// Complete is End(completed) + optional recording URL; idempotent.
		Complete(ctx context.Context, actor user.User, id string, recordingURL string) (Session, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
		conf   *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:   repo,
		logger: logger,
		conf:   conf,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, ns NewSession) (Session, error) {
	if !actor.IsTeacher() && !actor.IsAdmin() {
		return Session{}, ErrForbidden
	}
	now := nowFunc().UTC()
	sess := Session{
		CourseID:    ns.CourseID,
		TeacherID:   actor.ID,
		Title:       ns.Title,
		Description: ns.Description,
		StartTime:   ns.StartTime.UTC(),
		EndTime:     ns.EndTime.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "start_time", Ascending: true}}
	}
	return svc.repo.QuerySessions(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, us UpdateSession) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err = svc.requireHost(actor, sess); err != nil {
		return Session{}, err
	}
	sess.Title = us.Title
	sess.Description = us.Description
	sess.StartTime = us.StartTime.UTC()
	sess.EndTime = us.EndTime.UTC()
	sess.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *service) Delete(ctx context.Context, actor user.User, ids ...string) error {
	if !actor.IsTeacher() && !actor.IsAdmin() {
		return ErrForbidden
	}
	_, err := svc.repo.DeleteSessionsByID(ctx, ids)
	return err
}

func (svc *service) Status(ctx context.Context, actor user.User, id string) (Session, Status, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, Status{}, err
	}
	return sess, Evaluate(sess, nowFunc(), actor.IsTeacher() || actor.IsAdmin()), nil
}

func (svc *service) Start(ctx context.Context, actor user.User, id string) (JoinInfo, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return JoinInfo{}, err
	}
	if err = svc.requireHost(actor, sess); err != nil {
		return JoinInfo{}, err
	}
	if err = svc.requireJoinable(sess, true); err != nil {
		return JoinInfo{}, err
	}

	// the room identity is minted once and kept across restarts within the
	// session's lifetime, so reconnects land in the same room
	if !sess.MeetingID.Valid {
		meetingID := NewRoomID(sess.Title)
		sess.MeetingID = null.StringFrom(meetingID)
		sess.VideoLink = null.StringFrom(svc.videoLink(meetingID))
	}
	sess.IsActive = true
	sess.UpdatedAt = nowFunc().UTC()

	updated, err := svc.persistWithRetry(ctx, sess)
	if err != nil {
		// never fail visibly on start: hand out a fresh neutral room instead
		// and keep the original failure on the record
		return svc.fallbackJoinInfo(actor, sess, errors.Wrap(err, "persisting session start")), nil
	}
	return JoinInfo{VideoLink: updated.VideoLink.String, MeetingID: updated.MeetingID.String}, nil
}

func (svc *service) Join(ctx context.Context, actor user.User, id string) (JoinInfo, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return JoinInfo{}, err
	}
	teacher := svc.isHost(actor, sess)
	if err = svc.requireJoinable(sess, teacher); err != nil {
		return JoinInfo{}, err
	}

	if sess.IsActive && sess.MeetingID.Valid {
		return JoinInfo{VideoLink: sess.VideoLink.String, MeetingID: sess.MeetingID.String}, nil
	}

	// session not started yet (or room identity missing): mint one, best-effort
	// persist, and fall back to a neutral room if the write cannot be confirmed
	if !sess.MeetingID.Valid {
		meetingID := NewRoomID(sess.Title)
		sess.MeetingID = null.StringFrom(meetingID)
		sess.VideoLink = null.StringFrom(svc.videoLink(meetingID))
	}
	sess.UpdatedAt = nowFunc().UTC()

	updated, err := svc.persistWithRetry(ctx, sess)
	if err != nil {
		return svc.fallbackJoinInfo(actor, sess, errors.Wrap(err, "persisting session join")), nil
	}
	return JoinInfo{VideoLink: updated.VideoLink.String, MeetingID: updated.MeetingID.String}, nil
}

func (svc *service) End(ctx context.Context, actor user.User, id string, completed bool) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err = svc.requireHost(actor, sess); err != nil {
		return Session{}, err
	}

	sess.IsActive = false
	if completed {
		sess.IsCompleted = true
	}
	sess.UpdatedAt = nowFunc().UTC()
	return svc.persistWithRetry(ctx, sess)
}

func (svc *service) Complete(ctx context.Context, actor user.User, id string, recordingURL string) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if err = svc.requireHost(actor, sess); err != nil {
		return Session{}, err
	}
	if sess.IsCompleted && recordingURL == "" {
		return sess, nil // completing an already-completed session is a no-op success
	}

	sess.IsActive = false
	sess.IsCompleted = true
	if recordingURL != "" {
		sess.RecordingURL = null.StringFrom(recordingURL)
	}
	sess.UpdatedAt = nowFunc().UTC()
	return svc.persistWithRetry(ctx, sess)
}

// helpers

func (svc *service) isHost(actor user.User, sess Session) bool {
	return actor.ID == sess.TeacherID || actor.IsAdmin()
}

func (svc *service) requireHost(actor user.User, sess Session) error {
	if !svc.isHost(actor, sess) {
		return ErrForbidden
	}
	return nil
}

func (svc *service) requireJoinable(sess Session, teacher bool) error {
	now := nowFunc()
	st := Evaluate(sess, now, teacher)
	if st.CanJoin {
		return nil
	}
	return &NotJoinableError{
		Status:    st,
		Completed: sess.IsCompleted,
		Remaining: joinOpensIn(sess, now, teacher),
	}
}

// persistWithRetry retries a version-conflicting write once on fresh state,
// re-applying only the lifecycle fields. A second conflict is returned as is.
func (svc *service) persistWithRetry(ctx context.Context, sess Session) (Session, error) {
	updated, err := svc.repo.UpdateSession(ctx, sess)
	if errors.Cause(err) != ErrVersionConflict {
		return updated, err
	}

	fresh, gerr := svc.repo.GetSession(ctx, sess.ID)
	if gerr != nil {
		return Session{}, gerr
	}
	fresh.IsActive = sess.IsActive
	// completion is one-way; never unwind a concurrent complete
	fresh.IsCompleted = fresh.IsCompleted || sess.IsCompleted
	if !fresh.MeetingID.Valid {
		fresh.MeetingID = sess.MeetingID
		fresh.VideoLink = sess.VideoLink
	}
	if sess.RecordingURL.Valid {
		fresh.RecordingURL = sess.RecordingURL
	}
	fresh.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, fresh)
}

// fallbackJoinInfo synthesizes a fresh, ungated room so the user still gets a
// working meeting; the swallowed failure goes to the logger for observability.
func (svc *service) fallbackJoinInfo(actor user.User, sess Session, cause error) JoinInfo {
	meetingID := NeutralRoomID()
	svc.logger.Error(
		fmt.Sprintf("session %s: falling back to synthesized room %s", sess.ID, meetingID),
		cause, actor,
	)
	return JoinInfo{VideoLink: svc.videoLink(meetingID), MeetingID: meetingID}
}

func (svc *service) videoLink(meetingID string) string {
	return "https://" + svc.conf.Conference.Domain + "/" + meetingID
}
