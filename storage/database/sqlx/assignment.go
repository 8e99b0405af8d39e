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
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/assignment"
)

type assignmentRepository struct {
	repository
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{repository{db: db}}
}

const (
	assignmentColumns = `id, course_id, title, description, due_date, max_points, attachment_url, created_at, updated_at`
	submissionColumns = `id, assignment_id, student_id, content, file_url, is_late, points, feedback, graded_by, graded_at, submitted_at`
)

type dbAssignment struct {
	ID            string      `db:"id"`
	CourseID      string      `db:"course_id"`
	Title         string      `db:"title"`
	Description   string      `db:"description"`
	DueDate       time.Time   `db:"due_date"`
	MaxPoints     int         `db:"max_points"`
	AttachmentURL null.String `db:"attachment_url"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type dbSubmission struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	Content      string      `db:"content"`
	FileURL      null.String `db:"file_url"`
	IsLate       bool        `db:"is_late"`
	Points       null.Int    `db:"points"`
	Feedback     string      `db:"feedback"`
	GradedBy     null.String `db:"graded_by"`
	GradedAt     null.Time   `db:"graded_at"`
	SubmittedAt  time.Time   `db:"submitted_at"`
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	if asg.ID == "" {
		asg.ID = uuid.New().String()
	}
	da := dbAssignment(asg)

	query := `
	INSERT INTO assignments (` + assignmentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		da.ID, da.CourseID, da.Title, da.Description, da.DueDate, da.MaxPoints,
		da.AttachmentURL, da.CreatedAt, da.UpdatedAt,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (assignment.Assignment, error) {
	var da dbAssignment
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &da, query, id); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "getting assignment")
	}
	return assignment.Assignment(da), nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]assignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments`
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
		if !filter.DueAfter.IsZero() {
			conds = append(conds, "due_date > "+arg(filter.DueAfter))
		}
		if !filter.DueBy.IsZero() {
			conds = append(conds, "due_date <= "+arg(filter.DueBy))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "due_date ASC")

	var das []dbAssignment
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &das, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(das))
	for _, da := range das {
		assignments = append(assignments, assignment.Assignment(da))
	}
	return assignments, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	da := dbAssignment(asg)
	query := `
	UPDATE assignments
	SET title = $2, description = $3, due_date = $4, max_points = $5, attachment_url = $6, updated_at = $7
	WHERE id = $1`
	res, err := repo.ext(exec...).ExecContext(ctx, query,
		da.ID, da.Title, da.Description, da.DueDate, da.MaxPoints, da.AttachmentURL, da.UpdatedAt,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.ext(exec...).ExecContext(ctx, `DELETE FROM assignments WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

func (repo *assignmentRepository) UpsertSubmission(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	ds := dbSubmission(sub)

	query := `
	INSERT INTO submissions (` + submissionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (assignment_id, student_id) DO UPDATE
	SET content = EXCLUDED.content, file_url = EXCLUDED.file_url, is_late = EXCLUDED.is_late,
		submitted_at = EXCLUDED.submitted_at`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		ds.ID, ds.AssignmentID, ds.StudentID, ds.Content, ds.FileURL, ds.IsLate,
		ds.Points, ds.Feedback, ds.GradedBy, ds.GradedAt, ds.SubmittedAt,
	)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return repo.GetSubmission(ctx, sub.AssignmentID, sub.StudentID, exec...)
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string, exec ...core.DBExecutor) (assignment.Submission, error) {
	var ds dbSubmission
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE assignment_id = $1 AND student_id = $2`
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &ds, query, assignmentID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "getting submission")
	}
	return assignment.Submission(ds), nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]assignment.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at ASC`
	var dss []dbSubmission
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &dss, query, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]assignment.Submission, 0, len(dss))
	for _, ds := range dss {
		subs = append(subs, assignment.Submission(ds))
	}
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	ds := dbSubmission(sub)
	query := `
	UPDATE submissions
	SET points = $2, feedback = $3, graded_by = $4, graded_at = $5
	WHERE id = $1`
	res, err := repo.ext(exec...).ExecContext(ctx, query,
		ds.ID, ds.Points, ds.Feedback, ds.GradedBy, ds.GradedAt,
	)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}
