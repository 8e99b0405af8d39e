package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

// Session is a scheduled, time-boxed class meeting tied to a course.
// A session transitions active -> completed and never the reverse; a host may
// stop and restart before completion.
type Session struct {
	ID           string      `json:"id"`
	CourseID     string      `json:"course_id"`
	TeacherID    string      `json:"teacher_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	StartTime    time.Time   `json:"start_time"` // UTC
	EndTime      time.Time   `json:"end_time"`   // UTC
	IsActive     bool        `json:"is_active"`
	IsCompleted  bool        `json:"is_completed"`
	MeetingID    null.String `json:"meeting_id"`
	VideoLink    null.String `json:"video_link"`
	RecordingURL null.String `json:"recording_url"`
	Version      int         `json:"-"` // optimistic concurrency token, checked on write
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

// JoinInfo is what a caller needs to enter the meeting room.
type JoinInfo struct {
	VideoLink string `json:"video_link"`
	MeetingID string `json:"meeting_id"`
}

// NewSession contains information needed to schedule a new Session.
type NewSession struct {
	CourseID    string    `json:"course_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

// UpdateSession defines what information may be provided to modify a scheduled Session.
type UpdateSession struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (us *UpdateSession) Validate(orig Session, validate *validator.Validate) error {
	title := core.CleanString(us.Title)
	if title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	us.Description = core.CleanString(us.Description)
	if us.StartTime.IsZero() {
		us.StartTime = orig.StartTime
	}
	if us.EndTime.IsZero() {
		us.EndTime = orig.EndTime
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	if !us.EndTime.After(us.StartTime) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

type QueryFilter struct {
	CourseID    string    `query:"course_id"`
	TeacherID   string    `query:"teacher_id"`
	Upcoming    bool      `query:"upcoming"`
	IsActive    *bool     `query:"is_active"`
	IsCompleted *bool     `query:"is_completed"`
	From        time.Time `query:"from"`
	To          time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.TeacherID == "" && !qf.Upcoming &&
		qf.IsActive == nil && qf.IsCompleted == nil && qf.From.IsZero() && qf.To.IsZero()
}
