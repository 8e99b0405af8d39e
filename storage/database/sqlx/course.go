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

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
)

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{repository{db: db}}
}

const courseColumns = `id, code, title, description, subject, teacher_id, is_archived, created_at, updated_at`

type dbCourse struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Subject     string    `db:"subject"`
	TeacherID   string    `db:"teacher_id"`
	IsArchived  bool      `db:"is_archived"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type dbEnrollment struct {
	CourseID  string    `db:"course_id"`
	StudentID string    `db:"student_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}

	query := `
	INSERT INTO courses (` + courseColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.ext(exec...).ExecContext(ctx, query,
		crs.ID, crs.Code, crs.Title, crs.Description, crs.Subject, crs.TeacherID,
		crs.IsArchived, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter, exec ...core.DBExecutor) (course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE `
	var arg interface{}
	switch {
	case filter.ID != "":
		query += `id = $1`
		arg = filter.ID
	case filter.Code != "":
		query += `code = $1`
		arg = filter.Code
	default:
		return course.Course{}, course.ErrNotFound
	}

	var dc dbCourse
	if err := sqlx.GetContext(ctx, repo.ext(exec...), &dc, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return course.Course(dc), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	query := `SELECT ` + prefixColumns("c", courseColumns) + ` FROM courses c`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.StudentID != "" {
			query += ` JOIN enrollments e ON e.course_id = c.id`
			conds = append(conds, "e.student_id = "+arg(filter.StudentID))
		}
		if filter.TeacherID != "" {
			conds = append(conds, "c.teacher_id = "+arg(filter.TeacherID))
		}
		if filter.Search != "" {
			p := arg("%" + strings.ToLower(filter.Search) + "%")
			conds = append(conds, fmt.Sprintf("(LOWER(c.title) LIKE %[1]s OR LOWER(c.subject) LIKE %[1]s)", p))
		}
		if filter.IsArchived != nil {
			conds = append(conds, "c.is_archived = "+arg(*filter.IsArchived))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "c.created_at DESC")

	var dcs []dbCourse
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &dcs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(dcs))
	for _, dc := range dcs {
		courses = append(courses, course.Course(dc))
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	query := `
	UPDATE courses
	SET title = $2, description = $3, subject = $4, is_archived = $5, updated_at = $6
	WHERE id = $1`
	res, err := repo.ext(exec...).ExecContext(ctx, query,
		crs.ID, crs.Title, crs.Description, crs.Subject, crs.IsArchived, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.ext(exec...).ExecContext(ctx, `DELETE FROM courses WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	query := `INSERT INTO enrollments (course_id, student_id, created_at) VALUES ($1, $2, $3)`
	_, err := repo.ext(exec...).ExecContext(ctx, query, enr.CourseID, enr.StudentID, enr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	query := `SELECT course_id, student_id, created_at FROM enrollments WHERE course_id = $1 ORDER BY created_at ASC`
	var des []dbEnrollment
	if err := sqlx.SelectContext(ctx, repo.ext(exec...), &des, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]course.Enrollment, 0, len(des))
	for _, de := range des {
		enrs = append(enrs, course.Enrollment(de))
	}
	return enrs, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error {
	res, err := repo.ext(exec...).ExecContext(ctx,
		`DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func prefixColumns(prefix, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = prefix + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
