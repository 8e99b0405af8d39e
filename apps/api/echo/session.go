package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
)

type sessionApi struct {
	svc           session.Service
	attendanceSvc attendance.Service
	userSvc       user.Service
	validate      *validator.Validate
	live          *liveWatcher // nil: no room supervision
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc session.Service,
	attendanceSvc attendance.Service,
	userSvc user.Service,
	validate *validator.Validate,
	live *liveWatcher,
) {
	api := sessionApi{
		svc:           svc,
		attendanceSvc: attendanceSvc,
		userSvc:       userSvc,
		validate:      validate,
		live:          live,
	}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.create, teacherMiddleware())
	sg.GET("", api.query)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.GET("/status", api.status)
	dg.POST("/start", api.start, teacherMiddleware())
	dg.POST("/join", api.join)
	dg.POST("/end", api.end, teacherMiddleware())
	dg.POST("/complete", api.complete, teacherMiddleware())
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := new(session.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []session.Session{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding session by ID")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding session by ID")
	}

	var data session.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(sess, api.validate); err != nil {
		return err
	}

	sess, err = api.svc.Update(ctx.Request().Context(), ctxUsr, sess.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// status is meant to be polled by waiting-room pages.
func (api *sessionApi) status(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, st, err := api.svc.Status(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "evaluating session status")
	}
	return ctx.JSON(http.StatusOK, SessionStatusResponse{
		IsActive:     sess.IsActive,
		IsCompleted:  sess.IsCompleted,
		TimingStatus: st.Timing,
		CanJoin:      st.CanJoin,
	})
}

func (api *sessionApi) start(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	info, err := api.svc.Start(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	api.live.watch(ctxUsr, ctx.Param("id"), info)
	return ctx.JSON(http.StatusOK, info)
}

func (api *sessionApi) join(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	info, err := api.svc.Join(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "joining session")
	}

	// joining counts as presence; a bookkeeping failure must not keep the
	// student out of the room
	if ctxUsr.IsStudent() {
		if _, err := api.attendanceSvc.MarkJoin(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "marking attendance"))
		}
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *sessionApi) end(ctx echo.Context) error {
	var data EndSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EndSessionRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.End(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data.Completed)
	if err != nil {
		return errors.Wrap(err, "ending session")
	}
	api.live.stop(sess.ID)
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) complete(ctx echo.Context) error {
	var data CompleteSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteSessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.Complete(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data.RecordingURL)
	if err != nil {
		return errors.Wrap(err, "completing session")
	}
	api.live.stop(sess.ID)
	return ctx.JSON(http.StatusOK, sess)
}

type (
	SessionStatusResponse struct {
		IsActive     bool                 `json:"is_active"`
		IsCompleted  bool                 `json:"is_completed"`
		TimingStatus session.TimingStatus `json:"timing_status"`
		CanJoin      bool                 `json:"can_join"`
	}

	EndSessionRequest struct {
		Completed bool `json:"completed"`
	}

	CompleteSessionRequest struct {
		RecordingURL string `json:"recording_url" validate:"omitempty,url"`
	}
)

func (cr *CompleteSessionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}
