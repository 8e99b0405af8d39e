package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/assignment"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/attendance"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/course"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/session"
	"github.com/Rahuly1606/Virtual-Classroom-sub000/core/user"
	emailsvc "github.com/Rahuly1606/Virtual-Classroom-sub000/services/email"
	inmemdb "github.com/Rahuly1606/Virtual-Classroom-sub000/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "VirtualClassroom",
		Env:              "TEST",
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Address: "noreply@localhost"},

		PasswordResetTimeoutDelta: time.Hour,
		OTPTimeoutDelta:           10 * time.Minute,

		Server: core.ServerConfig{
			Addr:                      ":0",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Conference: core.ConferenceConfig{
			Domain:             "meet.jit.si",
			RosterPollInterval: 10 * time.Second,
			InactivityTimeout:  30 * time.Minute,
			RequestTimeout:     time.Second,
		},
	}
}

type testEnv struct {
	server Server
	conf   *core.Config

	usrRepo       user.Repository
	usrSvc        user.Service
	courseSvc     course.Service
	sessionSvc    session.Service
	assignmentSvc assignment.Service
	attendanceSvc attendance.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := testConfig()
	logger := nopLogger{}

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	env := &testEnv{
		conf:          conf,
		usrRepo:       usrRepo,
		usrSvc:        user.NewServiceMock(usrRepo, mailSvc, logger, conf),
		courseSvc:     course.NewService(inmemdb.NewCourseRepository(db), logger),
		sessionSvc:    session.NewService(inmemdb.NewSessionRepository(db), logger, conf),
		assignmentSvc: assignment.NewService(inmemdb.NewAssignmentRepository(db), logger),
		attendanceSvc: attendance.NewService(inmemdb.NewAttendanceRepository(db), logger),
	}

	env.server = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       env.usrSvc,
		CourseSvc:     env.courseSvc,
		SessionSvc:    env.sessionSvc,
		AssignmentSvc: env.assignmentSvc,
		AttendanceSvc: env.attendanceSvc,
		Validate:      validate,
		Translator:    translator,
	})
	return env
}

func (env *testEnv) createUser(t *testing.T, name, uname, email string, roles []string, verified bool) user.User {
	t.Helper()
	usr := user.User{
		Name:          name,
		Username:      uname,
		Email:         email,
		Roles:         roles,
		EmailVerified: verified,
	}
	usr.SetActive(true)
	if err := usr.SetPassword("V3ry#Str0ng!"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Jane Doe", "janedoe", "jane@test.cd", user.TeacherRoles, true)
	env.createUser(t, "John Doe", "johndoe", "john@test.cd", user.StudentRoles, false)

	t.Run("ok", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/login", "", echo.Map{"username": "janedoe", "password": "V3ry#Str0ng!"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decodeBody(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/login", "", echo.Map{"username": "janedoe", "password": "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"authentication failed"}`, rec.Body.String())
	})

	t.Run("unverified email", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/login", "", echo.Map{"username": "johndoe", "password": "V3ry#Str0ng!"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"email address not verified"}`, rec.Body.String())
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/token-refresh", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)

	rec := env.do(http.MethodPost, "/v1/users/register", "", echo.Map{
		"name":             "New Student",
		"username":         "newstudent",
		"email":            "new@test.cd",
		"password":         "V3ry#Str0ng!",
		"password_confirm": "V3ry#Str0ng!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var usr user.User
	decodeBody(t, rec, &usr)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.False(t, usr.EmailVerified)

	// same username again
	rec = env.do(http.MethodPost, "/v1/users/register", "", echo.Map{
		"name":             "Copy Cat",
		"username":         "newstudent",
		"email":            "cat@test.cd",
		"password":         "V3ry#Str0ng!",
		"password_confirm": "V3ry#Str0ng!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_courseApi_enrollment(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher1", "teacher@test.cd", user.TeacherRoles, true)
	student := env.createUser(t, "Student", "student1", "student@test.cd", user.StudentRoles, true)
	teacherToken := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	rec := env.do(http.MethodPost, "/v1/courses", teacherToken, echo.Map{"title": "Algorithms", "subject": "CS"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs course.Course
	decodeBody(t, rec, &crs)
	require.NotEmpty(t, crs.Code)

	t.Run("student cannot create courses", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/courses", studentToken, echo.Map{"title": "Nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("enroll by code", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/courses/enroll", studentToken, echo.Map{"code": crs.Code})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got course.Course
		decodeBody(t, rec, &got)
		assert.Equal(t, crs.ID, got.ID)
	})

	t.Run("student query is scoped to enrolled courses", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/courses", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var courses []course.Course
		decodeBody(t, rec, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, crs.ID, courses[0].ID)
	})

	t.Run("teacher sees enrollments", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/courses/"+crs.ID+"/enrollments", teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var enrollments []course.Enrollment
		decodeBody(t, rec, &enrollments)
		require.Len(t, enrollments, 1)
		assert.Equal(t, student.ID, enrollments[0].StudentID)
	})

	t.Run("unenroll", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/courses/"+crs.ID+"/enroll", studentToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, "/v1/courses", studentToken, nil)
		var courses []course.Course
		decodeBody(t, rec, &courses)
		assert.Empty(t, courses)
	})
}

func Test_sessionApi_lifecycle(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher1", "teacher@test.cd", user.TeacherRoles, true)
	student := env.createUser(t, "Student", "student1", "student@test.cd", user.StudentRoles, true)
	teacherToken := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	crs, err := env.courseSvc.Create(context.Background(), teacher.ID, course.NewCourse{Title: "Algorithms"})
	require.NoError(t, err)
	_, err = env.courseSvc.Enroll(context.Background(), crs.Code, student.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	rec := env.do(http.MethodPost, "/v1/sessions", teacherToken, echo.Map{
		"course_id":  crs.ID,
		"title":      "Lecture 1",
		"start_time": now.Add(-2 * time.Minute),
		"end_time":   now.Add(40 * time.Minute),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess session.Session
	decodeBody(t, rec, &sess)

	t.Run("status is pollable", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/sessions/"+sess.ID+"/status", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var st SessionStatusResponse
		decodeBody(t, rec, &st)
		assert.Equal(t, session.TimingActive, st.TimingStatus)
		assert.True(t, st.CanJoin)
		assert.False(t, st.IsCompleted)
	})

	t.Run("start", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/start", teacherToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var info session.JoinInfo
		decodeBody(t, rec, &info)
		assert.NotEmpty(t, info.MeetingID)
		assert.Contains(t, info.VideoLink, info.MeetingID)
	})

	t.Run("student join marks attendance", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/join", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		record, err := env.attendanceSvc.Get(context.Background(), sess.ID, student.ID)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusPresent, record.Status)
		assert.True(t, record.JoinedAt.Valid)
	})

	t.Run("student cannot end the session", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/end", studentToken, echo.Map{"completed": false})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("complete seals the session", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/complete", teacherToken, echo.Map{
			"recording_url": "https://recordings.test/lecture-1",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got session.Session
		decodeBody(t, rec, &got)
		assert.True(t, got.IsCompleted)
		assert.False(t, got.IsActive)

		// a completed session is no longer joinable
		rec = env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/join", studentToken, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func Test_sessionApi_joinTooEarly(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher1", "teacher@test.cd", user.TeacherRoles, true)
	student := env.createUser(t, "Student", "student1", "student@test.cd", user.StudentRoles, true)
	studentToken := env.getToken(t, student)

	crs, err := env.courseSvc.Create(context.Background(), teacher.ID, course.NewCourse{Title: "Algorithms"})
	require.NoError(t, err)

	now := time.Now().UTC()
	sess, err := env.sessionSvc.Create(context.Background(), teacher, session.NewSession{
		CourseID:  crs.ID,
		Title:     "Lecture 2",
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/v1/sessions/"+sess.ID+"/join", studentToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not joinable yet")
}

func Test_assignmentApi_submitAndGrade(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher1", "teacher@test.cd", user.TeacherRoles, true)
	student := env.createUser(t, "Student", "student1", "student@test.cd", user.StudentRoles, true)
	teacherToken := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	crs, err := env.courseSvc.Create(context.Background(), teacher.ID, course.NewCourse{Title: "Algorithms"})
	require.NoError(t, err)
	_, err = env.courseSvc.Enroll(context.Background(), crs.Code, student.ID)
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/v1/assignments", teacherToken, echo.Map{
		"course_id":  crs.ID,
		"title":      "Homework 1",
		"due_date":   time.Now().UTC().Add(24 * time.Hour),
		"max_points": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var asg assignment.Assignment
	decodeBody(t, rec, &asg)

	t.Run("submit", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/assignments/"+asg.ID+"/submit", studentToken, echo.Map{"content": "my answer"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var sub assignment.Submission
		decodeBody(t, rec, &sub)
		assert.False(t, sub.IsLate)
	})

	t.Run("grade exceeding max is rejected", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions/"+student.ID+"/grade", teacherToken,
			echo.Map{"points": 150})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("grade", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions/"+student.ID+"/grade", teacherToken,
			echo.Map{"points": 87, "feedback": "solid work"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sub assignment.Submission
		decodeBody(t, rec, &sub)
		assert.True(t, sub.Graded())
		assert.EqualValues(t, 87, sub.Points.Int)
	})

	t.Run("student cannot list submissions", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/assignments/"+asg.ID+"/submissions", studentToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_attendanceApi_override(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Teacher", "teacher1", "teacher@test.cd", user.TeacherRoles, true)
	student := env.createUser(t, "Student", "student1", "student@test.cd", user.StudentRoles, true)
	teacherToken := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	crs, err := env.courseSvc.Create(context.Background(), teacher.ID, course.NewCourse{Title: "Algorithms"})
	require.NoError(t, err)

	now := time.Now().UTC()
	sess, err := env.sessionSvc.Create(context.Background(), teacher, session.NewSession{
		CourseID:  crs.ID,
		Title:     "Lecture 1",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(-30 * time.Minute),
	})
	require.NoError(t, err)

	t.Run("teacher overrides", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/attendance/override", teacherToken, echo.Map{
			"session_id": sess.ID,
			"student_id": student.ID,
			"status":     "excused",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var record attendance.Record
		decodeBody(t, rec, &record)
		assert.Equal(t, attendance.StatusExcused, record.Status)
	})

	t.Run("student cannot override", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/attendance/override", studentToken, echo.Map{
			"session_id": sess.ID,
			"student_id": student.ID,
			"status":     "present",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("student query is scoped to own records", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/attendance", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var records []attendance.Record
		decodeBody(t, rec, &records)
		require.Len(t, records, 1)
		assert.Equal(t, student.ID, records[0].StudentID)
	})
}
