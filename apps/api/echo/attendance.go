package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type attendanceApi struct {
	svc        attendance.Service
	sessionSvc session.Service
	courseSvc  course.Service
	userSvc    user.Service
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc attendance.Service,
	sessionSvc session.Service,
	courseSvc course.Service,
	userSvc user.Service,
) {
	api := attendanceApi{
		svc:        svc,
		sessionSvc: sessionSvc,
		courseSvc:  courseSvc,
		userSvc:    userSvc,
	}

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.query)
	ag.PUT("/override", api.override, teacherMiddleware())
	ag.GET("/stats", api.stats)
}

// Handlers

// query scopes results for students to their own records.
func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !(ctxUsr.IsAdmin() || ctxUsr.IsTeacher()) {
		filter.StudentID = ctxUsr.ID
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) override(ctx echo.Context) error {
	var data OverrideAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OverrideAttendanceRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// only the hosting teacher (or an admin) may correct the roll
	sess, err := api.sessionSvc.GetByID(ctx.Request().Context(), data.SessionID)
	if err != nil {
		return errors.Wrap(err, "finding session by ID")
	}
	if !(ctxUsr.IsAdmin() || sess.TeacherID == ctxUsr.ID) {
		return errHttpForbidden
	}

	rec, err := api.svc.Override(
		ctx.Request().Context(),
		data.SessionID, data.StudentID, ctxUsr.ID,
		attendance.Status(data.Status),
	)
	if err != nil {
		return errors.Wrap(err, "overriding attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) stats(ctx echo.Context) error {
	var query StatsRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to StatsRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	studentID := query.StudentID
	if !(ctxUsr.IsAdmin() || ctxUsr.IsTeacher()) || studentID == "" {
		studentID = ctxUsr.ID
	}
	if ctxUsr.IsTeacher() && !ctxUsr.IsAdmin() {
		crs, err := api.courseSvc.GetByID(ctx.Request().Context(), query.CourseID)
		if err != nil {
			return errors.Wrap(err, "finding course by ID")
		}
		if !crs.OwnedBy(ctxUsr.ID) {
			return errHttpForbidden
		}
	}

	stats, err := api.svc.CourseStats(ctx.Request().Context(), query.CourseID, studentID)
	if err != nil {
		return errors.Wrap(err, "computing attendance stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

type (
	OverrideAttendanceRequest struct {
		SessionID string `json:"session_id"`
		StudentID string `json:"student_id"`
		Status    string `json:"status"`
	}

	StatsRequest struct {
		CourseID  string `query:"course_id"`
		StudentID string `query:"student_id"`
	}
)
