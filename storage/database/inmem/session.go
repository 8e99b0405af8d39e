package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sess.ID == "" {
		sess.ID = repo.db.nextID()
	}
	sess.Version = 1
	repo.db.sessions[sess.ID] = sess
	return sess, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sess, ok := repo.db.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]session.Session, 0, len(repo.db.sessions))
	for _, sess := range repo.db.sessions {
		if filter != nil && !matchesSessionFilter(sess, filter) {
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func matchesSessionFilter(sess session.Session, filter *session.QueryFilter) bool {
	if filter.CourseID != "" && sess.CourseID != filter.CourseID {
		return false
	}
	if filter.TeacherID != "" && sess.TeacherID != filter.TeacherID {
		return false
	}
	if filter.Upcoming && (sess.IsCompleted || sess.EndTime.Before(time.Now().UTC())) {
		return false
	}
	if filter.IsActive != nil && sess.IsActive != *filter.IsActive {
		return false
	}
	if filter.IsCompleted != nil && sess.IsCompleted != *filter.IsCompleted {
		return false
	}
	if !filter.From.IsZero() && sess.StartTime.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sess.StartTime.After(filter.To) {
		return false
	}
	return true
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.sessions[sess.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if orig.Version != sess.Version {
		return session.Session{}, session.ErrVersionConflict
	}

	sess.Version++
	repo.db.sessions[sess.ID] = sess
	return sess, nil
}

func (repo *sessionRepository) DeleteSessionsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	count := 0
	for _, id := range ids {
		if _, ok := repo.db.sessions[id]; ok {
			delete(repo.db.sessions, id)
			count++
		}
	}
	return count, nil
}
