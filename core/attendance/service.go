package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

var (
	// errors
	ErrNotFound      = errors.New("attendance record not found")
	ErrInvalidStatus = errors.New("invalid attendance status")
)

// mocked in tests
var nowFunc = time.Now

type (
	Repository interface {
		// UpsertRecord keys on (session, student); a second write for the same
		// pair updates the existing row.
		UpsertRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		GetRecord(ctx context.Context, sessionID, studentID string, exec ...core.DBExecutor) (Record, error)
		// QueryRecords applies AND operation on available QueryFilter fields;
		// QueryFilter.CourseID matches through the session's course.
		QueryRecords(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Record, error)
		// CountSessions reports the course's session count for stats denominators.
		CountSessions(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// MarkJoin records presence when a student enters the live class;
		// repeat joins keep the first join time and never downgrade an override.
		MarkJoin(ctx context.Context, sessionID, studentID string) (Record, error)
		// Override lets a teacher set a student's status by hand.
		Override(ctx context.Context, sessionID, studentID, teacherID string, status Status) (Record, error)
		Get(ctx context.Context, sessionID, studentID string) (Record, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Record, error)
		CourseStats(ctx context.Context, courseID, studentID string) (Stats, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) MarkJoin(ctx context.Context, sessionID, studentID string) (Record, error) {
	now := nowFunc().UTC()

	rec, err := svc.repo.GetRecord(ctx, sessionID, studentID)
	switch errors.Cause(err) {
	case nil:
		if rec.MarkedBy.Valid {
			return rec, nil // teacher's word stands
		}
		if !rec.JoinedAt.Valid {
			rec.JoinedAt = null.TimeFrom(now)
		}
		rec.Status = StatusPresent
		rec.UpdatedAt = now
	case ErrNotFound:
		rec = Record{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    StatusPresent,
			JoinedAt:  null.TimeFrom(now),
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return Record{}, err
	}

	return svc.repo.UpsertRecord(ctx, rec)
}

func (svc *service) Override(ctx context.Context, sessionID, studentID, teacherID string, status Status) (Record, error) {
	if !status.Valid() {
		return Record{}, core.NewValidationError(ErrInvalidStatus,
			core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}

	now := nowFunc().UTC()
	rec, err := svc.repo.GetRecord(ctx, sessionID, studentID)
	if errors.Cause(err) == ErrNotFound {
		rec = Record{SessionID: sessionID, StudentID: studentID, CreatedAt: now}
	} else if err != nil {
		return Record{}, err
	}

	rec.Status = status
	rec.MarkedBy = null.StringFrom(teacherID)
	rec.UpdatedAt = now
	return svc.repo.UpsertRecord(ctx, rec)
}

func (svc *service) Get(ctx context.Context, sessionID, studentID string) (Record, error) {
	return svc.repo.GetRecord(ctx, sessionID, studentID)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *service) CourseStats(ctx context.Context, courseID, studentID string) (Stats, error) {
	total, err := svc.repo.CountSessions(ctx, courseID)
	if err != nil {
		return Stats{}, err
	}

	recs, err := svc.repo.QueryRecords(ctx, &QueryFilter{CourseID: courseID, StudentID: studentID})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{CourseID: courseID, StudentID: studentID, Total: total}
	for _, rec := range recs {
		switch rec.Status {
		case StatusPresent:
			stats.Present++
		case StatusLate:
			stats.Late++
		case StatusExcused:
			stats.Excused++
		}
	}
	if total > 0 {
		stats.Rate = float64(stats.Present+stats.Late) / float64(total)
	}
	return stats, nil
}
