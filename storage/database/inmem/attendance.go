package inmemdb

import (
	"context"
	"sort"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func recordKey(sessionID, studentID string) string {
	return sessionID + "/" + studentID
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := recordKey(rec.SessionID, rec.StudentID)
	if existing, ok := repo.db.attendance[key]; ok {
		rec.ID = existing.ID
	} else if rec.ID == "" {
		rec.ID = repo.db.nextID()
	}
	repo.db.attendance[key] = rec
	return rec, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, sessionID, studentID string, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.attendance[recordKey(sessionID, studentID)]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter *attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var recs []attendance.Record
	for _, rec := range repo.db.attendance {
		if filter != nil {
			if filter.SessionID != "" && rec.SessionID != filter.SessionID {
				continue
			}
			if filter.StudentID != "" && rec.StudentID != filter.StudentID {
				continue
			}
			if filter.CourseID != "" {
				sess, ok := repo.db.sessions[rec.SessionID]
				if !ok || sess.CourseID != filter.CourseID {
					continue
				}
			}
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

func (repo *attendanceRepository) CountSessions(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	count := 0
	for _, sess := range repo.db.sessions {
		if sess.CourseID == courseID {
			count++
		}
	}
	return count, nil
}
