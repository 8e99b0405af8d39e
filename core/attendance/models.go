package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one student's attendance for one session. Joining the live class
// records presence automatically; a teacher may override afterwards.
type Record struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	StudentID string      `json:"student_id"`
	Status    Status      `json:"status"`
	JoinedAt  null.Time   `json:"joined_at"`
	MarkedBy  null.String `json:"marked_by"` // set on teacher override
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

type QueryFilter struct {
	SessionID string `query:"session_id"`
	StudentID string `query:"student_id"`
	CourseID  string `query:"course_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SessionID == "" && qf.StudentID == "" && qf.CourseID == ""
}

// Stats summarizes a student's attendance across a course's completed sessions.
type Stats struct {
	CourseID  string  `json:"course_id"`
	StudentID string  `json:"student_id"`
	Total     int     `json:"total"`
	Present   int     `json:"present"`
	Late      int     `json:"late"`
	Excused   int     `json:"excused"`
	Rate      float64 `json:"rate"` // (present + late) / total
}
