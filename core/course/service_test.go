package course

import (
	"context"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

type fakeRepo struct {
	courses     map[string]Course
	enrollments []Enrollment
	nextID      int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{courses: make(map[string]Course)}
}

func (r *fakeRepo) CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error) {
	for _, existing := range r.courses {
		if existing.Code == crs.Code {
			return Course{}, ErrCodeExists
		}
	}
	r.nextID++
	crs.ID = string(rune('a' + r.nextID))
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *fakeRepo) GetCourse(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Course, error) {
	for _, crs := range r.courses {
		if (filter.ID != "" && crs.ID == filter.ID) || (filter.Code != "" && crs.Code == filter.Code) {
			return crs, nil
		}
	}
	return Course{}, ErrNotFound
}

func (r *fakeRepo) QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error) {
	var out []Course
	for _, crs := range r.courses {
		if filter != nil && filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, crs)
	}
	return out, nil
}

func (r *fakeRepo) UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error) {
	if _, ok := r.courses[crs.ID]; !ok {
		return Course{}, ErrNotFound
	}
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *fakeRepo) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := r.courses[id]; ok {
			delete(r.courses, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error) {
	for _, existing := range r.enrollments {
		if existing.CourseID == enr.CourseID && existing.StudentID == enr.StudentID {
			return Enrollment{}, ErrAlreadyEnrolled
		}
	}
	r.enrollments = append(r.enrollments, enr)
	return enr, nil
}

func (r *fakeRepo) QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error) {
	var out []Enrollment
	for _, enr := range r.enrollments {
		if enr.CourseID == courseID {
			out = append(out, enr)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error {
	for i, enr := range r.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			r.enrollments = append(r.enrollments[:i], r.enrollments[i+1:]...)
			return nil
		}
	}
	return errors.Wrap(ErrNotEnrolled, courseID)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

var joinCodeRegex = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{6}$`)

func TestCourseService(t *testing.T) {
	ctx := context.Background()

	t.Run("create generates join code", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II"})
		require.NoError(t, err)
		assert.Regexp(t, joinCodeRegex, crs.Code)
		assert.Equal(t, "teacher1", crs.TeacherID)
	})

	t.Run("create keeps explicit code, uppercased", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "alg205"})
		require.NoError(t, err)
		assert.Equal(t, "ALG205", crs.Code)
	})

	t.Run("duplicate code is a field error", func(t *testing.T) {
		svc := NewService(newFakeRepo(), nopLogger{})
		_, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, "teacher2", NewCourse{Title: "Algebra II again", Code: "ALG205"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("enroll by code", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		got, err := svc.Enroll(ctx, "alg205", "student1")
		require.NoError(t, err)
		assert.Equal(t, crs.ID, got.ID)

		enrolled, err := svc.IsEnrolled(ctx, crs.ID, "student1")
		require.NoError(t, err)
		assert.True(t, enrolled)
	})

	t.Run("enroll twice is idempotent", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, "ALG205", "student1")
		require.NoError(t, err)
		_, err = svc.Enroll(ctx, "ALG205", "student1")
		require.NoError(t, err)

		enrs, err := svc.Enrollments(ctx, crs.ID)
		require.NoError(t, err)
		assert.Len(t, enrs, 1)
	})

	t.Run("cannot enroll in archived course", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		archived := true
		_, err = svc.Update(ctx, crs.ID, UpdateCourse{Title: crs.Title, IsArchived: &archived})
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, "ALG205", "student1")
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("unenroll", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, "ALG205", "student1")
		require.NoError(t, err)
		require.NoError(t, svc.Unenroll(ctx, crs.ID, "student1"))

		enrolled, err := svc.IsEnrolled(ctx, crs.ID, "student1")
		require.NoError(t, err)
		assert.False(t, enrolled)

		err = svc.Unenroll(ctx, crs.ID, "student1")
		assert.Equal(t, ErrNotEnrolled, errors.Cause(err))
	})

	t.Run("update preserves code and owner", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo, nopLogger{})
		crs, err := svc.Create(ctx, "teacher1", NewCourse{Title: "Algebra II", Code: "ALG205"})
		require.NoError(t, err)

		got, err := svc.Update(ctx, crs.ID, UpdateCourse{Title: "Algebra II (Honors)"})
		require.NoError(t, err)
		assert.Equal(t, "Algebra II (Honors)", got.Title)
		assert.Equal(t, "ALG205", got.Code)
		assert.Equal(t, "teacher1", got.TeacherID)
	})
}
