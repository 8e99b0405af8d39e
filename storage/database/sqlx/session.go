package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
)

type sessionRepository struct {
	repository
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{repository{db: db}}
}

const sessionColumns = `id, course_id, teacher_id, title, description, start_time, end_time,
	is_active, is_completed, meeting_id, video_link, recording_url, version, created_at, updated_at`

type dbSession struct {
	ID           string      `db:"id"`
	CourseID     string      `db:"course_id"`
	TeacherID    string      `db:"teacher_id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	StartTime    time.Time   `db:"start_time"`
	EndTime      time.Time   `db:"end_time"`
	IsActive     bool        `db:"is_active"`
	IsCompleted  bool        `db:"is_completed"`
	MeetingID    null.String `db:"meeting_id"`
	VideoLink    null.String `db:"video_link"`
	RecordingURL null.String `db:"recording_url"`
	Version      int         `db:"version"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (ds dbSession) toCore() session.Session {
	return session.Session(ds)
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	sess.Version = 1
	ds := dbSession(sess)

	query := `
	INSERT INTO sessions (` + sessionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		ds.ID, ds.CourseID, ds.TeacherID, ds.Title, ds.Description, ds.StartTime, ds.EndTime,
		ds.IsActive, ds.IsCompleted, ds.MeetingID, ds.VideoLink, ds.RecordingURL, ds.Version,
		ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (session.Session, error) {
	var ds dbSession
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &ds, query, id); err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	return ds.toCore(), nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.CourseID != "" {
			conds = append(conds, "course_id = "+arg(filter.CourseID))
		}
		if filter.TeacherID != "" {
			conds = append(conds, "teacher_id = "+arg(filter.TeacherID))
		}
		if filter.Upcoming {
			conds = append(conds, "end_time > "+arg(time.Now().UTC()), "is_completed = FALSE")
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if filter.IsCompleted != nil {
			conds = append(conds, "is_completed = "+arg(*filter.IsCompleted))
		}
		if !filter.From.IsZero() {
			conds = append(conds, "start_time >= "+arg(filter.From))
		}
		if !filter.To.IsZero() {
			conds = append(conds, "start_time <= "+arg(filter.To))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "start_time ASC")

	var dss []dbSession
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &dss, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(dss))
	for _, ds := range dss {
		sessions = append(sessions, ds.toCore())
	}
	return sessions, nil
}

// UpdateSession writes the row only when the caller's version still matches,
// bumping it on success.
func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	ds := dbSession(sess)

	query := `
	UPDATE sessions
	SET title = $3, description = $4, start_time = $5, end_time = $6, is_active = $7,
		is_completed = $8, meeting_id = $9, video_link = $10, recording_url = $11,
		version = version + 1, updated_at = $12
	WHERE id = $1 AND version = $2`
	res, err := repo.ext(exec...).ExecContext(ctx, query,
		ds.ID, ds.Version, ds.Title, ds.Description, ds.StartTime, ds.EndTime, ds.IsActive,
		ds.IsCompleted, ds.MeetingID, ds.VideoLink, ds.RecordingURL, ds.UpdatedAt,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if count == 0 {
		// stale version or missing row; disambiguate for the caller
		if _, err = repo.GetSession(ctx, sess.ID, exec...); err != nil {
			return session.Session{}, err
		}
		return session.Session{}, session.ErrVersionConflict
	}

	sess.Version++
	return sess, nil
}

func (repo *sessionRepository) DeleteSessionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.ext(exec...).ExecContext(ctx, `DELETE FROM sessions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting sessions")
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}
