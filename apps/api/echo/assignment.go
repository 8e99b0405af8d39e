package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/assignment"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type assignmentApi struct {
	svc       assignment.Service
	courseSvc course.Service
	userSvc   user.Service
	validate  *validator.Validate
}

func registerAssignmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc assignment.Service,
	courseSvc course.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := assignmentApi{
		svc:       svc,
		courseSvc: courseSvc,
		userSvc:   userSvc,
		validate:  validate,
	}

	ag := g.Group("/assignments", jwt)
	ag.POST("", api.create, teacherMiddleware())
	ag.GET("", api.query)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.POST("/submit", api.submit, studentMiddleware())
	dg.GET("/submissions", api.querySubmissions, teacherMiddleware())
	dg.GET("/submissions/me", api.retrieveOwnSubmission, studentMiddleware())
	dg.POST("/submissions/:studentID/grade", api.grade, teacherMiddleware())
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.requireCourseOwner(ctx, data.CourseID); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	filter := new(assignment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []assignment.Assignment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	if filter.CourseID != "" {
		if err := api.requireCourseAccess(ctx, filter.CourseID); err != nil {
			return err
		}
	}

	assignments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if err := api.requireCourseAccess(ctx, asg.CourseID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if _, err := api.requireCourseOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(asg, api.validate); err != nil {
		return err
	}

	asg, err = api.svc.Update(ctx.Request().Context(), asg.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if _, err := api.requireCourseOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), asg.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enrolled, err := api.courseSvc.IsEnrolled(ctx.Request().Context(), asg.CourseID, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return errHttpForbidden
	}

	var data assignment.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), asg.ID, ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if _, err := api.requireCourseOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), asg.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) retrieveOwnSubmission(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sub, err := api.svc.Submission(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	asg, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	ctxUsr, err := api.requireCourseOwner(ctx, asg.CourseID)
	if err != nil {
		return err
	}

	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(asg, api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), asg.ID, ctx.Param("studentID"), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// requireCourseOwner checks that the caller owns the course (or is admin).
func (api *assignmentApi) requireCourseOwner(ctx echo.Context, courseID string) (user.User, error) {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding course by ID")
	}
	if !(ctxUsr.IsAdmin() || crs.OwnedBy(ctxUsr.ID)) {
		return user.User{}, errHttpForbidden
	}
	return ctxUsr, nil
}

// requireCourseAccess checks that the caller owns the course, is enrolled
// in it, or is admin.
func (api *assignmentApi) requireCourseAccess(ctx echo.Context, courseID string) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsAdmin() {
		return nil
	}
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if crs.OwnedBy(ctxUsr.ID) {
		return nil
	}
	enrolled, err := api.courseSvc.IsEnrolled(ctx.Request().Context(), courseID, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return errHttpForbidden
	}
	return nil
}
