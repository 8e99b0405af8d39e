package inmemdb

import (
	"context"
	"strings"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.courses {
		if existing.Code == crs.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	if crs.ID == "" {
		crs.ID = repo.db.nextID()
	}
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if (filter.ID != "" && crs.ID == filter.ID) || (filter.Code != "" && crs.Code == filter.Code) {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if filter != nil && !repo.matchesFilter(crs, filter) {
			continue
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

// matchesFilter must be called with (at least) the read lock held.
func (repo *courseRepository) matchesFilter(crs course.Course, filter *course.QueryFilter) bool {
	if filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
		return false
	}
	if filter.StudentID != "" {
		enrolled := false
		for _, enr := range repo.db.enrollments {
			if enr.CourseID == crs.ID && enr.StudentID == filter.StudentID {
				enrolled = true
				break
			}
		}
		if !enrolled {
			return false
		}
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), s) && !strings.Contains(strings.ToLower(crs.Subject), s) {
			return false
		}
	}
	if filter.IsArchived != nil && crs.IsArchived != *filter.IsArchived {
		return false
	}
	return true
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	count := 0
	for _, id := range ids {
		if _, ok := repo.db.courses[id]; ok {
			delete(repo.db.courses, id)
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.CourseID == enr.CourseID && existing.StudentID == enr.StudentID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollments = append(repo.db.enrollments, enr)
	return enr, nil
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []course.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, enr)
		}
	}
	return enrs, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			repo.db.enrollments = append(repo.db.enrollments[:i], repo.db.enrollments[i+1:]...)
			return nil
		}
	}
	return course.ErrNotEnrolled
}
