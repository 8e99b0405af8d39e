package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
)

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{repository{db: db}}
}

const attendanceColumns = `id, session_id, student_id, status, joined_at, marked_by, created_at, updated_at`

type dbRecord struct {
	ID        string      `db:"id"`
	SessionID string      `db:"session_id"`
	StudentID string      `db:"student_id"`
	Status    string      `db:"status"`
	JoinedAt  null.Time   `db:"joined_at"`
	MarkedBy  null.String `db:"marked_by"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (dr dbRecord) toCore() attendance.Record {
	return attendance.Record{
		ID:        dr.ID,
		SessionID: dr.SessionID,
		StudentID: dr.StudentID,
		Status:    attendance.Status(dr.Status),
		JoinedAt:  dr.JoinedAt,
		MarkedBy:  dr.MarkedBy,
		CreatedAt: dr.CreatedAt,
		UpdatedAt: dr.UpdatedAt,
	}
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
	INSERT INTO attendance (` + attendanceColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (session_id, student_id) DO UPDATE
	SET status = EXCLUDED.status, joined_at = EXCLUDED.joined_at, marked_by = EXCLUDED.marked_by,
		updated_at = EXCLUDED.updated_at`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.StudentID, string(rec.Status), rec.JoinedAt, rec.MarkedBy,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return repo.GetRecord(ctx, rec.SessionID, rec.StudentID, exec...)
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, sessionID, studentID string, exec ...core.DBExecutor) (attendance.Record, error) {
	var dr dbRecord
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE session_id = $1 AND student_id = $2`
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &dr, query, sessionID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return dr.toCore(), nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	query := `SELECT ` + prefixColumns("a", attendanceColumns) + ` FROM attendance a`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.CourseID != "" {
			query += ` JOIN sessions s ON s.id = a.session_id`
			conds = append(conds, "s.course_id = "+arg(filter.CourseID))
		}
		if filter.SessionID != "" {
			conds = append(conds, "a.session_id = "+arg(filter.SessionID))
		}
		if filter.StudentID != "" {
			conds = append(conds, "a.student_id = "+arg(filter.StudentID))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.created_at ASC"

	var drs []dbRecord
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &drs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(drs))
	for _, dr := range drs {
		recs = append(recs, dr.toCore())
	}
	return recs, nil
}

func (repo *attendanceRepository) CountSessions(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM sessions WHERE course_id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &count, query, courseID); err != nil {
		return 0, errors.Wrap(err, "counting sessions")
	}
	return count, nil
}
