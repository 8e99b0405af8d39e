// Package inmemdb holds map-backed repositories for tests and local hacking.
package inmemdb

import (
	"strconv"
	"sync"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/assignment"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type DB struct {
	mutex   sync.RWMutex
	pkCount int

	users       map[string]user.User
	courses     map[string]course.Course
	enrollments []course.Enrollment
	sessions    map[string]session.Session
	assignments map[string]assignment.Assignment
	submissions map[string]assignment.Submission // key: assignmentID + "/" + studentID
	attendance  map[string]attendance.Record     // key: sessionID + "/" + studentID
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]user.User),
		courses:     make(map[string]course.Course),
		sessions:    make(map[string]session.Session),
		assignments: make(map[string]assignment.Assignment),
		submissions: make(map[string]assignment.Submission),
		attendance:  make(map[string]attendance.Record),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() string {
	db.pkCount++
	return strconv.Itoa(db.pkCount)
}
