package inmemdb

import (
	"context"
	"sort"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func submissionKey(assignmentID, studentID string) string {
	return assignmentID + "/" + studentID
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if asg.ID == "" {
		asg.ID = repo.db.nextID()
	}
	repo.db.assignments[asg.ID] = asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	asg, ok := repo.db.assignments[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]assignment.Assignment, 0, len(repo.db.assignments))
	for _, asg := range repo.db.assignments {
		if filter != nil {
			if filter.CourseID != "" && asg.CourseID != filter.CourseID {
				continue
			}
			if !filter.DueAfter.IsZero() && !asg.DueDate.After(filter.DueAfter) {
				continue
			}
			if !filter.DueBy.IsZero() && asg.DueDate.After(filter.DueBy) {
				continue
			}
		}
		assignments = append(assignments, asg)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].DueDate.Before(assignments[j].DueDate) })
	return assignments, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignments[asg.ID] = asg
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	count := 0
	for _, id := range ids {
		if _, ok := repo.db.assignments[id]; ok {
			delete(repo.db.assignments, id)
			count++
		}
	}
	return count, nil
}

func (repo *assignmentRepository) UpsertSubmission(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := submissionKey(sub.AssignmentID, sub.StudentID)
	if existing, ok := repo.db.submissions[key]; ok {
		sub.ID = existing.ID
	} else if sub.ID == "" {
		sub.ID = repo.db.nextID()
	}
	repo.db.submissions[key] = sub
	return sub, nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string, exec ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sub, ok := repo.db.submissions[submissionKey(assignmentID, studentID)]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return sub, nil
}

func (repo *assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]assignment.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subs []assignment.Submission
	for _, sub := range repo.db.submissions {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(ctx context.Context, sub assignment.Submission, exec ...core.DBExecutor) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := submissionKey(sub.AssignmentID, sub.StudentID)
	if _, ok := repo.db.submissions[key]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.submissions[key] = sub
	return sub, nil
}
