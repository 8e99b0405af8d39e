package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyGraded      = errors.New("submission has already been graded")
)

// mocked in tests
var nowFunc = time.Now

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		// QueryAssignments applies AND operation on available QueryFilter fields.
		QueryAssignments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		UpsertSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string, exec ...core.DBExecutor) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAssignment) (Assignment, error)
		GetByID(ctx context.Context, id string) (Assignment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assignment, error)
		Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, ids ...string) error

		// Submit records a student's submission, replacing any ungraded prior
		// one; the late flag compares submission time against the due date.
		Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error)
		Submission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		Submissions(ctx context.Context, assignmentID string) ([]Submission, error)
		Grade(ctx context.Context, assignmentID, studentID, graderID string, gs GradeSubmission) (Submission, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Create(ctx context.Context, na NewAssignment) (Assignment, error) {
	now := nowFunc().UTC()
	asg := Assignment{
		CourseID:    na.CourseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		MaxPoints:   na.MaxPoints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if na.AttachmentURL != "" {
		asg.AttachmentURL = null.StringFrom(na.AttachmentURL)
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAssignment) (Assignment, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}

	asg := Assignment{
		ID:            id,
		CourseID:      orig.CourseID,
		Title:         ua.Title,
		Description:   ua.Description,
		DueDate:       ua.DueDate.UTC(),
		MaxPoints:     ua.MaxPoints,
		AttachmentURL: orig.AttachmentURL,
		CreatedAt:     orig.CreatedAt,
		UpdatedAt:     nowFunc().UTC(),
	}
	if ua.AttachmentURL != "" {
		asg.AttachmentURL = null.StringFrom(ua.AttachmentURL)
	}
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAssignmentsByID(ctx, ids)
	return err
}

func (svc *service) Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error) {
	asg, err := svc.GetByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	if prior, err := svc.repo.GetSubmission(ctx, assignmentID, studentID); err == nil && prior.Graded() {
		return Submission{}, ErrAlreadyGraded
	} else if err != nil && errors.Cause(err) != ErrSubmissionNotFound {
		return Submission{}, err
	}

	now := nowFunc().UTC()
	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      ns.Content,
		IsLate:       now.After(asg.DueDate),
		SubmittedAt:  now,
	}
	if ns.FileURL != "" {
		sub.FileURL = null.StringFrom(ns.FileURL)
	}
	return svc.repo.UpsertSubmission(ctx, sub)
}

func (svc *service) Submission(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, assignmentID, studentID)
}

func (svc *service) Submissions(ctx context.Context, assignmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}

func (svc *service) Grade(ctx context.Context, assignmentID, studentID, graderID string, gs GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, assignmentID, studentID)
	if err != nil {
		return Submission{}, err
	}

	sub.Points = null.IntFrom(gs.Points)
	sub.Feedback = gs.Feedback
	sub.GradedBy = null.StringFrom(graderID)
	sub.GradedAt = null.TimeFrom(nowFunc().UTC())
	return svc.repo.UpdateSubmission(ctx, sub)
}
