package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

var documentField = "document"

type attendanceApi struct {
	svc     attendance.Service
	metrics *metrics
}

type (
	remindersResponse struct {
		Sent int `json:"sent"`
	}
)

func registerAttendanceAPI(g *echo.Group, svc attendance.Service, m *metrics) {
	api := attendanceApi{svc: svc, metrics: m}

	ag := g.Group("/attendance")
	ag.GET("/stats", api.overallStats)
	ag.GET("/requirement", api.requirement)
	ag.GET("/monthly", api.monthlyStats)
	ag.GET("/calendar", api.calendar)
	ag.GET("/events", api.events)
	ag.GET("/week", api.week)
	ag.GET("/export", api.export)
	ag.POST("/mark", api.mark)
	ag.POST("/reminders", api.sendReminders)

	cg := ag.Group("/courses")
	cg.GET("", api.courses)
	cg.GET("/:id", api.course)
	cg.GET("/:id/requirement", api.requirement)
	cg.GET("/:id/monthly", api.monthlyStats)

	sg := ag.Group("/settings")
	sg.GET("", api.settings)
	sg.PATCH("", api.updateSettings)

	ag.POST("/documents", api.stageDocument)

	eg := ag.Group("/excuses")
	eg.GET("", api.excuses)
	eg.POST("", api.submitExcuse)
}

// Handlers

func (api *attendanceApi) courses(ctx echo.Context) error {
	courses, err := api.svc.ListCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *attendanceApi) course(ctx echo.Context) error {
	ca, err := api.svc.GetCourseAttendance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course attendance")
	}
	return ctx.JSON(http.StatusOK, ca)
}

func (api *attendanceApi) overallStats(ctx echo.Context) error {
	stats, err := api.svc.GetOverallStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting overall stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// requirement serves both the overall and the per course requirement.
func (api *attendanceApi) requirement(ctx echo.Context) error {
	status, err := api.svc.GetRequirement(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting requirement")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *attendanceApi) monthlyStats(ctx echo.Context) error {
	courseID := ctx.Param("id")
	if courseID == "" {
		courseID = ctx.QueryParam(courseParam)
	}
	stats, err := api.svc.GetMonthlyStats(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "getting monthly stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) calendar(ctx echo.Context) error {
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	days, err := api.svc.GetCalendar(ctx.Request().Context(), r)
	if err != nil {
		return errors.Wrap(err, "getting calendar")
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *attendanceApi) events(ctx echo.Context) error {
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	events, err := api.svc.GetCalendarEvents(ctx.Request().Context(), r)
	if err != nil {
		return errors.Wrap(err, "getting calendar events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *attendanceApi) week(ctx echo.Context) error {
	anchor, fErr := bindDate(ctx, dateParam)
	if fErr != nil {
		return core.NewValidationError(nil, *fErr)
	}
	week, err := api.svc.GetWeekSchedule(ctx.Request().Context(), anchor)
	if err != nil {
		return errors.Wrap(err, "getting week schedule")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	rec, err := api.svc.MarkAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	api.metrics.marks.WithLabelValues(string(rec.Status)).Inc()
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) sendReminders(ctx echo.Context) error {
	n, err := api.svc.SendReminders(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	return ctx.JSON(http.StatusOK, remindersResponse{Sent: n})
}

func (api *attendanceApi) settings(ctx echo.Context) error {
	s, err := api.svc.GetSettings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) updateSettings(ctx echo.Context) error {
	var data attendance.SettingsPatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettingsPatch")
	}
	s, err := api.svc.UpdateSettings(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) stageDocument(ctx echo.Context) error {
	fh, err := ctx.FormFile(documentField)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: documentField, Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	defer func() { _ = f.Close() }()

	doc, err := api.svc.StageDocument(ctx.Request().Context(), fh.Filename, f)
	if err != nil {
		return errors.Wrap(err, "staging document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *attendanceApi) excuses(ctx echo.Context) error {
	excuses, err := api.svc.ListExcuses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing excuses")
	}
	return ctx.JSON(http.StatusOK, excuses)
}

func (api *attendanceApi) submitExcuse(ctx echo.Context) error {
	var data attendance.NewExcuse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExcuse")
	}
	ex, err := api.svc.SubmitExcuse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting excuse")
	}
	api.metrics.excuses.Inc()
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := api.svc.ExportRecords(ctx.Request().Context(), ctx.QueryParam(courseParam), &buf); err != nil {
		return errors.Wrap(err, "exporting records")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="attendance.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
