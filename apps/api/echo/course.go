package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type courseApi struct {
	svc      course.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("/enroll", api.enroll, studentMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.GET("/enrollments", api.enrollments, teacherMiddleware())
	dg.DELETE("/enroll", api.unenroll, studentMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

// query scopes results to the caller: teachers see the courses they own,
// students the courses they are enrolled in. Admins see everything.
func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		if ctxUsr.IsTeacher() {
			filter.TeacherID = ctxUsr.ID
		} else {
			filter.StudentID = ctxUsr.ID
		}
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.getAccessibleCourse(ctx, false /* ownerOnly */)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.getAccessibleCourse(ctx, true /* ownerOnly */)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.getAccessibleCourse(ctx, true /* ownerOnly */)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Enroll(ctx.Request().Context(), data.Code, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling in course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID); err != nil {
		return errors.Wrap(err, "unenrolling from course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enrollments(ctx echo.Context) error {
	crs, err := api.getAccessibleCourse(ctx, true /* ownerOnly */)
	if err != nil {
		return err
	}

	enrollments, err := api.svc.Enrollments(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

// getAccessibleCourse loads the course in ctx.Param("id") and checks the
// caller may see it. ownerOnly restricts access to the owning teacher (and
// admins); otherwise enrolled students pass too.
func (api *courseApi) getAccessibleCourse(ctx echo.Context, ownerOnly bool) (course.Course, error) {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsAdmin() || crs.OwnedBy(ctxUsr.ID) {
		return crs, nil
	}
	if !ownerOnly {
		enrolled, err := api.svc.IsEnrolled(ctx.Request().Context(), crs.ID, ctxUsr.ID)
		if err != nil {
			return course.Course{}, errors.Wrap(err, "checking enrollment")
		}
		if enrolled {
			return crs, nil
		}
	}
	return course.Course{}, errHttpForbidden
}

type EnrollRequest struct {
	Code string `json:"code" validate:"required"`
}

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}
