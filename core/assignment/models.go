package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

// Assignment is coursework with a deadline. Submissions arriving after
// DueDate are accepted but flagged late.
type Assignment struct {
	ID            string      `json:"id"`
	CourseID      string      `json:"course_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	DueDate       time.Time   `json:"due_date"` // UTC
	MaxPoints     int         `json:"max_points"`
	AttachmentURL null.String `json:"attachment_url"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
}

// Submission is one student's answer to an Assignment. A student keeps a
// single submission per assignment; resubmitting replaces it until graded.
type Submission struct {
	ID           string      `json:"id"`
	AssignmentID string      `json:"assignment_id"`
	StudentID    string      `json:"student_id"`
	Content      string      `json:"content"`
	FileURL      null.String `json:"file_url"`
	IsLate       bool        `json:"is_late"`
	Points       null.Int    `json:"points"`
	Feedback     string      `json:"feedback"`
	GradedBy     null.String `json:"graded_by"`
	GradedAt     null.Time   `json:"graded_at"`
	SubmittedAt  time.Time   `json:"submitted_at"` // UTC
}

func (s Submission) Graded() bool {
	return s.GradedAt.Valid
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	CourseID      string    `json:"course_id" validate:"required"`
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	MaxPoints     int       `json:"max_points" validate:"required,gt=0"`
	AttachmentURL string    `json:"attachment_url" validate:"omitempty,url"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an existing Assignment.
type UpdateAssignment struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DueDate       time.Time `json:"due_date"`
	MaxPoints     int       `json:"max_points" validate:"omitempty,gt=0"`
	AttachmentURL string    `json:"attachment_url" validate:"omitempty,url"`
}

func (ua *UpdateAssignment) Validate(orig Assignment, validate *validator.Validate) error {
	title := core.CleanString(ua.Title)
	if title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	ua.Description = core.CleanString(ua.Description)
	if ua.DueDate.IsZero() {
		ua.DueDate = orig.DueDate
	}
	if ua.MaxPoints == 0 {
		ua.MaxPoints = orig.MaxPoints
	}
	return validate.Struct(ua)
}

// NewSubmission is a student's submission payload.
type NewSubmission struct {
	Content string `json:"content" validate:"required_without=FileURL"`
	FileURL string `json:"file_url" validate:"omitempty,url"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

// GradeSubmission is a teacher's grading payload.
type GradeSubmission struct {
	Points   int    `json:"points" validate:"gte=0"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(asg Assignment, validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	if err := validate.Struct(gs); err != nil {
		return err
	}
	if gs.Points > asg.MaxPoints {
		return core.NewValidationError(nil,
			core.FieldError{Field: "points", Error: "points exceed the assignment maximum"})
	}
	return nil
}

type QueryFilter struct {
	CourseID string    `query:"course_id"`
	DueAfter time.Time `query:"due_after"`
	DueBy    time.Time `query:"due_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.DueAfter.IsZero() && qf.DueBy.IsZero()
}
