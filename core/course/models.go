package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

// Course groups sessions and assignments under one teacher. Students get in
// through enrollments, keyed by the join code the teacher hands out.
type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"` // short join code, unique
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	TeacherID   string    `json:"teacher_id"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c Course) OwnedBy(userID string) bool {
	return c.TeacherID == userID
}

// Enrollment joins a student to a course.
type Enrollment struct {
	CourseID  string    `json:"course_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
// Code is optional; a random join code is generated when omitted.
type NewCourse struct {
	Code        string `json:"code" validate:"omitempty,alphanum,min=4,max=12"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Subject = core.CleanString(nc.Subject)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	IsArchived  *bool  `json:"is_archived"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	title := core.CleanString(uc.Title)
	if title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	uc.Description = core.CleanString(uc.Description)
	uc.Subject = core.CleanString(uc.Subject)
	return validate.Struct(uc)
}

type QueryFilter struct {
	TeacherID  string `query:"teacher_id"`
	StudentID  string `query:"student_id"`
	Search     string `query:"search"`
	IsArchived *bool  `query:"is_archived"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TeacherID == "" && qf.StudentID == "" && qf.Search == "" && qf.IsArchived == nil
}
