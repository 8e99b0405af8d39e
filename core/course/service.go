package course

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this join code already exists")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	ErrNotEnrolled     = errors.New("student is not enrolled in this course")
)

const (
	codeLen = 6
	// no 0/O or 1/I, join codes get read out loud in class
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or Course.Subject.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error)
		DeleteEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error
	}

	GetFilter struct {
		ID   string
		Code string
	}

	Service interface {
		Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		// Enroll joins a student by course join code.
		Enroll(ctx context.Context, code, studentID string) (Course, error)
		Unenroll(ctx context.Context, courseID, studentID string) error
		Enrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
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

func (svc *service) Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Code:        strings.ToUpper(nc.Code),
		Title:       nc.Title,
		Description: nc.Description,
		Subject:     nc.Subject,
		TeacherID:   teacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if crs.Code == "" {
		code, err := generateCode()
		if err != nil {
			return Course{}, errors.Wrap(err, "generating join code")
		}
		crs.Code = code
	}

	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Course{}, err
	}
	return crs, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *service) GetByCode(ctx context.Context, code string) (Course, error) {
	// join codes are stored uppercase
	return svc.repo.GetCourse(ctx, GetFilter{Code: strings.ToUpper(core.CleanString(code))})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	crs := Course{
		ID:          id,
		Code:        orig.Code,
		Title:       uc.Title,
		Description: uc.Description,
		Subject:     uc.Subject,
		TeacherID:   orig.TeacherID,
		IsArchived:  orig.IsArchived,
		CreatedAt:   orig.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	if uc.IsArchived != nil {
		crs.IsArchived = *uc.IsArchived
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids)
	return err
}

func (svc *service) Enroll(ctx context.Context, code, studentID string) (Course, error) {
	crs, err := svc.GetByCode(ctx, code)
	if err != nil {
		return Course{}, err
	}
	if crs.IsArchived {
		return Course{}, core.NewValidationError(nil,
			core.FieldError{Field: "code", Error: "this course has been archived"})
	}

	enr := Enrollment{CourseID: crs.ID, StudentID: studentID, CreatedAt: time.Now().UTC()}
	if _, err = svc.repo.CreateEnrollment(ctx, enr); err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return crs, nil // idempotent
		}
		return Course{}, err
	}
	return crs, nil
}

func (svc *service) Unenroll(ctx context.Context, courseID, studentID string) error {
	return svc.repo.DeleteEnrollment(ctx, courseID, studentID)
}

func (svc *service) Enrollments(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, courseID)
}

func (svc *service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	enrs, err := svc.repo.QueryEnrollments(ctx, courseID)
	if err != nil {
		return false, err
	}
	for _, enr := range enrs {
		if enr.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLen)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
