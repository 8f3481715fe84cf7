package attendance_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	. "github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/tests"
)

var (
	pdfContent = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
)

// newService builds a service over env with custom options.
func newService(env *testutil.Env, opts Options) Service {
	return NewService(env.Repo, env.Notifier, env.Logger, env.Validate, env.Translator, opts)
}

func requireValidationError(t *testing.T, err error, field string) *core.ValidationError {
	t.Helper()
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok, "want *core.ValidationError; got %v", err)
	assert.True(t, vErr.HasField(field), "want field %q in %+v", field, vErr.Fields)
	return vErr
}

func Test_service_ListCourses(t *testing.T) {
	env := testutil.Setup(t)

	courses, err := env.Svc.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)

	cs, math := courses[0], courses[1]
	assert.Equal(t, "CS301", cs.CourseCode)
	assert.Equal(t, 10, cs.TotalSessions)
	assert.Equal(t, 8, cs.AttendedSessions)
	assert.Equal(t, 80.0, cs.AttendancePercentage)
	assert.Equal(t, LevelNone, cs.WarningLevel)
	require.NotNil(t, cs.LastAttended)
	assert.Equal(t, testutil.Day(-8), *cs.LastAttended)
	require.NotNil(t, cs.NextSession)
	assert.Equal(t, testutil.SessionID("cs301", testutil.Today), cs.NextSession.SessionID)

	assert.Equal(t, "MATH201", math.CourseCode)
	assert.Equal(t, 75.0, math.AttendancePercentage)
	assert.Equal(t, LevelCaution, math.WarningLevel)
	require.NotNil(t, math.NextSession)
	// yesterday's unmarked session is not the next one
	assert.Equal(t, testutil.SessionID("math201", testutil.Today), math.NextSession.SessionID)
	assert.Equal(t, "10:00", math.NextSession.StartTime)
}

func Test_service_GetCourseAttendance(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	ca, err := env.Svc.GetCourseAttendance(ctx, testutil.MATH201)
	require.NoError(t, err)
	assert.Equal(t, 4, ca.TotalSessions)
	assert.Len(t, ca.Records, 4)

	byCode, err := env.Svc.GetCourseAttendance(ctx, " cs301 ")
	require.NoError(t, err)
	assert.Equal(t, testutil.CS301, byCode.CourseID)

	_, err = env.Svc.GetCourseAttendance(ctx, "crs-nope")
	assert.Equal(t, ErrCourseNotFound, errors.Cause(err))
}

func Test_service_GetCourseAttendance_usesSettingsThresholds(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	warning, critical := 80, 75
	_, err := env.Svc.UpdateSettings(ctx, SettingsPatch{WarningThreshold: &warning, CriticalThreshold: &critical})
	require.NoError(t, err)

	ca, err := env.Svc.GetCourseAttendance(ctx, testutil.MATH201)
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, ca.WarningLevel) // 75% with 80/75

	stats, err := env.Svc.GetOverallStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CoursesAtRisk)
}

func Test_service_GetOverallStats(t *testing.T) {
	env := testutil.Setup(t)

	stats, err := env.Svc.GetOverallStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		OverallPercentage: 78.6, // 11/14
		TotalCourses:      2,
		TotalSessions:     14,
		AttendedSessions:  11,
		MissedSessions:    2,
		ExcusedSessions:   1,
		LateSessions:      1,
		CoursesAtRisk:     0,
	}, stats)
}

func Test_service_GetOverallStats_empty(t *testing.T) {
	env := testutil.Setup(t)
	env.DB.Reset()

	stats, err := env.Svc.GetOverallStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func Test_service_GetRequirement(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		courseID   string
		wantMet    bool
		wantNeeded int
	}{
		{name: "overall", courseID: "", wantNeeded: 5},
		{name: "CS301 exactly meets", courseID: testutil.CS301, wantMet: true},
		{name: "MATH201", courseID: testutil.MATH201, wantNeeded: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Svc.GetRequirement(ctx, tt.courseID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMet, got.Met)
			assert.Equal(t, tt.wantNeeded, got.Needed)
			assert.Equal(t, 80.0, got.MinRequired)
		})
	}

	_, err := env.Svc.GetRequirement(ctx, "crs-nope")
	assert.Equal(t, ErrCourseNotFound, errors.Cause(err))
}

func Test_service_GetCalendarEvents(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	ids := func(events []CalendarEvent) []string {
		res := make([]string, 0, len(events))
		for _, ev := range events {
			res = append(res, ev.ID)
		}
		return res
	}

	upcoming, err := env.Svc.GetCalendarEvents(ctx, DateRange{From: testutil.Day(-2), To: testutil.Day(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{
		testutil.SessionID("cs301", testutil.Today),
		testutil.SessionID("math201", testutil.Today),
		testutil.SessionID("cs301", testutil.Day(2)),
	}, ids(upcoming))
	for _, ev := range upcoming {
		assert.Equal(t, DisplayUpcoming, ev.Status)
		assert.NotEmpty(t, ev.CourseCode)
	}

	past, err := env.Svc.GetCalendarEvents(ctx, DateRange{From: testutil.Day(-7), To: testutil.Day(-6)})
	require.NoError(t, err)
	require.Len(t, past, 4)
	assert.Equal(t, DisplayExcused, past[0].Status) // CS301 09:00
	assert.Equal(t, DisplayAttended, past[1].Status) // MATH201 14:00
	assert.Equal(t, DisplayMissed, past[2].Status)
	assert.Equal(t, DisplayMissed, past[3].Status)

	all, err := env.Svc.GetCalendarEvents(ctx, DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 14+3)

	_, err = env.Svc.GetCalendarEvents(ctx, DateRange{From: testutil.Day(1), To: testutil.Day(-1)})
	requireValidationError(t, err, "to")
}

func Test_service_GetCalendar(t *testing.T) {
	env := testutil.Setup(t)

	days, err := env.Svc.GetCalendar(context.Background(), DateRange{From: testutil.Day(-7), To: testutil.Day(-6)})
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-10-09", days[0].Date)
	assert.Equal(t, DisplayExcused, days[0].Status)
	assert.Len(t, days[0].Events, 2)
	assert.Equal(t, "2024-10-10", days[1].Date)
	assert.Equal(t, DisplayMissed, days[1].Status)
}

func Test_service_GetWeekSchedule(t *testing.T) {
	env := testutil.Setup(t)

	ws, err := env.Svc.GetWeekSchedule(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, testutil.Day(-2), ws.Start)
	assert.Equal(t, testutil.Day(4), ws.End)
	require.Len(t, ws.Days, 7)
	assert.Empty(t, ws.Days[1].Events) // yesterday's session was never marked
	assert.Equal(t, DisplayUpcoming, ws.Days[2].Status)
	assert.Len(t, ws.Days[2].Events, 2)
	assert.Len(t, ws.Days[4].Events, 1)

	prev, err := env.Svc.GetWeekSchedule(context.Background(), testutil.Day(-7))
	require.NoError(t, err)
	assert.Equal(t, "2024-10-07", prev.Days[0].Date)
	assert.Equal(t, DisplayAttended, prev.Days[0].Status) // Oct 7: CS301 + MATH201 present
}

func Test_service_GetMonthlyStats(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	all, err := env.Svc.GetMonthlyStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []MonthlyStat{{
		Month: "Oct 2024", Year: 2024, MonthNo: time.October,
		Present: 10, Absent: 2, Excused: 1, Late: 1, Total: 14,
	}}, all)

	math, err := env.Svc.GetMonthlyStats(ctx, testutil.MATH201)
	require.NoError(t, err)
	require.Len(t, math, 1)
	assert.Equal(t, 4, math[0].Total)

	_, err = env.Svc.GetMonthlyStats(ctx, "crs-nope")
	assert.Equal(t, ErrCourseNotFound, errors.Cause(err))
}

func Test_service_UpdateSettings(t *testing.T) {
	iPtr := func(i int) *int { return &i }
	bPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name      string
		patch     SettingsPatch
		wantField string
		want      func(s *Settings)
	}{
		{name: "empty patch", patch: SettingsPatch{}, want: func(*Settings) {}},
		{name: "reminder 60", patch: SettingsPatch{ReminderTime: iPtr(60)}, want: func(s *Settings) { s.ReminderTime = 60 }},
		{name: "reminder 61", patch: SettingsPatch{ReminderTime: iPtr(61)}, wantField: "reminder_time"},
		{name: "reminder 7", patch: SettingsPatch{ReminderTime: iPtr(7)}, wantField: "reminder_time"},
		{name: "warning 55", patch: SettingsPatch{WarningThreshold: iPtr(55)}, wantField: "warning_threshold"},
		{name: "critical above warning", patch: SettingsPatch{CriticalThreshold: iPtr(75)}, wantField: "critical_threshold"},
		{
			name:  "channels and thresholds",
			patch: SettingsPatch{SMSNotifications: bPtr(true), WarningThreshold: iPtr(80), CriticalThreshold: iPtr(70)},
			want: func(s *Settings) {
				s.SMSNotifications = true
				s.WarningThreshold = 80
				s.CriticalThreshold = 70
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.Setup(t)
			ctx := context.Background()

			got, err := env.Svc.UpdateSettings(ctx, tt.patch)
			stored, sErr := env.Svc.GetSettings(ctx)
			require.NoError(t, sErr)

			if tt.wantField != "" {
				requireValidationError(t, err, tt.wantField)
				assert.Equal(t, DefaultSettings(), stored, "stored settings must be unchanged")
				return
			}
			require.NoError(t, err)
			want := DefaultSettings()
			tt.want(&want)
			assert.Equal(t, want, got)
			assert.Equal(t, want, stored)
		})
	}
}

func Test_service_UpdateSettings_simulatedFailure(t *testing.T) {
	env := testutil.Setup(t)
	opts := attendanceOptions(env)
	opts.Latency = core.Latency{Fail: func() bool { return true }}
	svc := newService(env, opts)
	ctx := context.Background()

	reminder := 30
	_, err := svc.UpdateSettings(ctx, SettingsPatch{ReminderTime: &reminder})
	assert.Equal(t, core.ErrSimulatedTimeout, errors.Cause(err))

	stored, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, stored.ReminderTime)
}

func Test_service_UpdateSettings_cancelled(t *testing.T) {
	env := testutil.Setup(t)
	opts := attendanceOptions(env)
	opts.Latency = core.Latency{Delay: time.Hour}
	svc := newService(env, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	reminder := 30
	_, err := svc.UpdateSettings(ctx, SettingsPatch{ReminderTime: &reminder})
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func attendanceOptions(env *testutil.Env) Options {
	return OptionsFromConfig(env.Conf)
}

func Test_service_StageDocument(t *testing.T) {
	env := testutil.Setup(t)
	opts := attendanceOptions(env)
	opts.MaxDocumentSize = 128
	svc := newService(env, opts)
	ctx := context.Background()

	tests := []struct {
		name      string
		filename  string
		content   []byte
		wantType  string
		wantName  string
		wantField string
	}{
		{name: "pdf", filename: "medical.pdf", content: pdfContent, wantType: "application/pdf", wantName: "medical.pdf"},
		{name: "png", filename: "scan.png", content: pngContent, wantType: "image/png", wantName: "scan.png"},
		{name: "path is stripped", filename: "../../tmp/note.pdf", content: pdfContent, wantType: "application/pdf", wantName: "note.pdf"},
		{name: "text is rejected", filename: "note.txt", content: []byte("I was sick"), wantField: "document"},
		{name: "pdf name does not matter", filename: "fake.pdf", content: []byte("plain text"), wantField: "document"},
		{name: "empty", filename: "empty.pdf", content: nil, wantField: "document"},
		{name: "too large", filename: "big.pdf", content: append(append([]byte{}, pdfContent...), make([]byte, 128)...), wantField: "document"},
		{name: "no filename", filename: "  ", content: pdfContent, wantField: "filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := svc.StageDocument(ctx, tt.filename, bytes.NewReader(tt.content))
			if tt.wantField != "" {
				requireValidationError(t, err, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, doc.ID)
			assert.Equal(t, tt.wantName, doc.Filename)
			assert.True(t, strings.HasPrefix(doc.ContentType, tt.wantType), doc.ContentType)
			assert.Equal(t, int64(len(tt.content)), doc.Size)

			stored, err := env.Repo.GetDocuments(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.content, stored[0].Content)
		})
	}
}

func Test_service_SubmitExcuse(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	doc, err := env.Svc.StageDocument(ctx, "medical.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)

	valid := func(fn func(in *NewExcuse)) NewExcuse {
		in := NewExcuse{CourseID: testutil.MATH201, Date: DateKey(testutil.Day(-6)), Reason: "Hospital visit"}
		fn(&in)
		return in
	}

	tests := []struct {
		name      string
		input     NewExcuse
		wantField string
	}{
		{name: "valid", input: valid(func(*NewExcuse) {})},
		{name: "with document", input: valid(func(in *NewExcuse) { in.DocumentIDs = []string{doc.ID} })},
		{name: "today", input: valid(func(in *NewExcuse) { in.Date = DateKey(testutil.Day(0)) })},
		{name: "14 days ago", input: valid(func(in *NewExcuse) { in.Date = DateKey(testutil.Day(-14)) })},
		{name: "15 days ago", input: valid(func(in *NewExcuse) { in.Date = DateKey(testutil.Day(-15)) }), wantField: "date"},
		{name: "tomorrow", input: valid(func(in *NewExcuse) { in.Date = DateKey(testutil.Day(1)) }), wantField: "date"},
		{name: "bad date", input: valid(func(in *NewExcuse) { in.Date = "16/10/2024" }), wantField: "date"},
		{name: "missing date", input: valid(func(in *NewExcuse) { in.Date = "" }), wantField: "date"},
		{name: "empty reason", input: valid(func(in *NewExcuse) { in.Reason = "" }), wantField: "reason"},
		{name: "blank reason", input: valid(func(in *NewExcuse) { in.Reason = "   " }), wantField: "reason"},
		{name: "missing course", input: valid(func(in *NewExcuse) { in.CourseID = "" }), wantField: "course_id"},
		{name: "unknown course", input: valid(func(in *NewExcuse) { in.CourseID = "crs-nope" }), wantField: "course_id"},
		{name: "unknown document", input: valid(func(in *NewExcuse) { in.DocumentIDs = []string{"nope"} }), wantField: "document_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := env.Svc.SubmitExcuse(ctx, tt.input)
			if tt.wantField != "" {
				requireValidationError(t, err, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, ex.ID)
			assert.Equal(t, ExcusePending, ex.Status)
			assert.Equal(t, "MATH201", ex.CourseCode)
			assert.Equal(t, tt.input.Date, DateKey(ex.Date))
			assert.Len(t, ex.Documents, len(tt.input.DocumentIDs))
		})
	}

	excuses, err := env.Svc.ListExcuses(ctx)
	require.NoError(t, err)
	assert.Len(t, excuses, 4)

	sent := env.Notifier.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, NotifyExcuseReceived, sent[0].Kind)
	assert.Equal(t, Channels{Email: true, Push: true}, sent[0].Channels)
	assert.Equal(t, env.Conf.Student, sent[0].Recipient)
}

func Test_service_SubmitExcuse_emailExtras(t *testing.T) {
	env := testutil.Setup(t)
	office := mail.Address{Name: "Excuse Office", Address: "excuses@uni.test"}
	tests := []struct {
		name    string
		office  mail.Address
		wantBcc []mail.Address
	}{
		{name: "office copied", office: office, wantBcc: []mail.Address{office}},
		{name: "no office", office: mail.Address{Name: "Excuse Office"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.DB.Reset()
			env.DB.Seed(testutil.Fixture())
			opts := attendanceOptions(env)
			opts.ExcuseOffice = tt.office
			svc := newService(env, opts)
			ctx := context.Background()

			doc, err := svc.StageDocument(ctx, "medical.pdf", bytes.NewReader(pdfContent))
			require.NoError(t, err)
			before := len(env.Notifier.Sent())
			_, err = svc.SubmitExcuse(ctx, NewExcuse{
				CourseID:    testutil.MATH201,
				Date:        DateKey(testutil.Day(-6)),
				Reason:      "Hospital visit",
				DocumentIDs: []string{doc.ID},
			})
			require.NoError(t, err)

			sent := env.Notifier.Sent()
			require.Len(t, sent, before+1)
			n := sent[before]
			assert.Equal(t, NotifyExcuseReceived, n.Kind)
			assert.Equal(t, tt.wantBcc, n.Bcc)
			assert.Empty(t, n.Cc)
			require.Len(t, n.Attachments, 1)
			assert.Equal(t, "medical.pdf", n.Attachments[0].Filename)
			assert.Equal(t, pdfContent, n.Attachments[0].Content)
		})
	}
}

func Test_service_MarkAttendance_advisorCopied(t *testing.T) {
	env := testutil.Setup(t)
	advisor := mail.Address{Name: "Academic Advisor", Address: "advisor@uni.test"}
	opts := attendanceOptions(env)
	opts.Advisor = advisor
	svc := newService(env, opts)

	_, err := svc.MarkAttendance(context.Background(), MarkRequest{
		SessionID: testutil.SessionID("math201", testutil.Today),
		Status:    StatusAbsent,
		Method:    MethodManual,
	})
	require.NoError(t, err)

	sent := env.Notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, NotifyAttendanceWarning, sent[0].Kind)
	assert.Equal(t, []mail.Address{advisor}, sent[0].Cc)
	assert.Empty(t, sent[0].Attachments)
}

func Test_service_MarkAttendance(t *testing.T) {
	mathToday := testutil.SessionID("math201", testutil.Today)
	csToday := testutil.SessionID("cs301", testutil.Today)

	tests := []struct {
		name        string
		req         MarkRequest
		wantField   string
		wantMarkErr error
		wantLevel   Level
		wantAlert   Level // level reported by the warning notification, if any
		wantPct     float64
	}{
		{
			name:      "absent drops MATH201 to critical",
			req:       MarkRequest{SessionID: mathToday, Status: StatusAbsent, Method: MethodManual},
			wantLevel: LevelCritical,
			wantAlert: LevelCritical,
			wantPct:   60,
		},
		{
			name:      "present lifts MATH201 out of caution",
			req:       MarkRequest{SessionID: mathToday, Status: StatusPresent, Method: MethodQR},
			wantLevel: LevelNone,
		},
		{
			name:      "late counts as attended",
			req:       MarkRequest{SessionID: csToday, Status: StatusLate, Method: MethodBiometric},
			wantLevel: LevelNone,
		},
		{
			name:      "absent drops CS301 to warning",
			req:       MarkRequest{SessionID: csToday, Status: StatusAbsent, Method: MethodSelf},
			wantLevel: LevelWarning,
			wantAlert: LevelWarning,
			wantPct:   72.7,
		},
		{
			name:        "unknown session",
			req:         MarkRequest{SessionID: "nope", Status: StatusPresent, Method: MethodQR},
			wantMarkErr: ErrInvalidSession,
		},
		{
			name:        "already marked",
			req:         MarkRequest{SessionID: testutil.SessionID("cs301", testutil.Day(-6)), Status: StatusPresent, Method: MethodQR},
			wantMarkErr: ErrDuplicateMark,
		},
		{
			name:      "invalid status",
			req:       MarkRequest{SessionID: mathToday, Status: "gone", Method: MethodQR},
			wantField: "status",
		},
		{
			name:      "missing method",
			req:       MarkRequest{SessionID: mathToday, Status: StatusPresent},
			wantField: "method",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.Setup(t)
			ctx := context.Background()

			rec, err := env.Svc.MarkAttendance(ctx, tt.req)
			switch {
			case tt.wantField != "":
				requireValidationError(t, err, tt.wantField)
				return
			case tt.wantMarkErr != nil:
				var mErr *MarkError
				require.True(t, errors.As(err, &mErr), "want *MarkError; got %v", err)
				assert.Equal(t, tt.wantMarkErr, mErr.Err)
				assert.True(t, errors.Is(err, tt.wantMarkErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.SessionID, rec.SessionID)
			assert.Equal(t, tt.req.Status, rec.Status)
			assert.Equal(t, testutil.Today, rec.Date)
			assert.NotEmpty(t, rec.MarkedBy)

			ca, err := env.Svc.GetCourseAttendance(ctx, rec.CourseID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, ca.WarningLevel)

			sent := env.Notifier.Sent()
			if tt.wantAlert == "" {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			assert.Equal(t, NotifyAttendanceWarning, sent[0].Kind)
			data, ok := sent[0].Data.(WarningData)
			require.True(t, ok)
			assert.Equal(t, string(tt.wantAlert), data.Level)
			assert.Equal(t, tt.wantPct, data.Percentage)
			assert.Contains(t, data.Requirement, "improve your attendance")
		})
	}
}

func Test_service_MarkAttendance_markedBy(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	rec, err := env.Svc.MarkAttendance(ctx, MarkRequest{
		SessionID: testutil.SessionID("math201", testutil.Today),
		Status:    StatusPresent,
		Method:    MethodManual,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Emily Williams", rec.MarkedBy)

	rec, err = env.Svc.MarkAttendance(ctx, MarkRequest{
		SessionID: testutil.SessionID("cs301", testutil.Today),
		Status:    StatusPresent,
		Method:    MethodManual,
		MarkedBy:  "TA Kevin",
	})
	require.NoError(t, err)
	assert.Equal(t, "TA Kevin", rec.MarkedBy)
}

func Test_service_MarkAttendance_concurrent(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()
	req := MarkRequest{SessionID: testutil.SessionID("cs301", testutil.Today), Status: StatusPresent, Method: MethodQR}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dupErr int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Svc.MarkAttendance(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrDuplicateMark) {
				dupErr++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dupErr)
}

func Test_service_MarkAttendance_notificationsDisabled(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	off := false
	_, err := env.Svc.UpdateSettings(ctx, SettingsPatch{EmailNotifications: &off, PushNotifications: &off})
	require.NoError(t, err)

	_, err = env.Svc.MarkAttendance(ctx, MarkRequest{
		SessionID: testutil.SessionID("math201", testutil.Today),
		Status:    StatusAbsent,
		Method:    MethodManual,
	})
	require.NoError(t, err)
	assert.Empty(t, env.Notifier.Sent())
}

func Test_service_MarkAttendance_notifierFailure(t *testing.T) {
	env := testutil.Setup(t)
	env.Notifier.Err = errors.New("smtp down")

	rec, err := env.Svc.MarkAttendance(context.Background(), MarkRequest{
		SessionID: testutil.SessionID("math201", testutil.Today),
		Status:    StatusAbsent,
		Method:    MethodManual,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, env.Notifier.Sent(), 1)
}

func Test_service_SendReminders(t *testing.T) {
	at := func(h, m int) time.Time { return testutil.Today.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	inZone := func(offset, h, m int) time.Time {
		return time.Date(2024, time.October, 16, h, m, 0, 0, time.FixedZone("", offset*3600))
	}

	tests := []struct {
		name     string
		now      time.Time
		reminder int
		want     []string // start times
	}{
		{name: "too early", now: at(8, 0)},
		{name: "CS301 in 10 minutes", now: at(8, 50), want: []string{"09:00"}},
		{name: "exactly at the reminder time", now: at(8, 45), want: []string{"09:00"}},
		{name: "already started", now: at(9, 0)},
		{name: "wide window", now: at(8, 30), reminder: 60, want: []string{"09:00"}},
		{name: "wide window later", now: at(9, 5), reminder: 60, want: []string{"10:00"}},
		{name: "east of UTC", now: inZone(3, 8, 50), want: []string{"09:00"}},
		{name: "east of UTC too early", now: inZone(3, 8, 0)},
		{name: "west of UTC", now: inZone(-5, 8, 50), want: []string{"09:00"}},
		{name: "west of UTC already started", now: inZone(-5, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.Setup(t, tt.now)
			ctx := context.Background()
			if tt.reminder > 0 {
				_, err := env.Svc.UpdateSettings(ctx, SettingsPatch{ReminderTime: &tt.reminder})
				require.NoError(t, err)
			}

			n, err := env.Svc.SendReminders(ctx)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)

			sent := env.Notifier.Sent()
			require.Len(t, sent, len(tt.want))
			for i, n := range sent {
				assert.Equal(t, NotifyClassReminder, n.Kind)
				assert.Equal(t, tt.want[i], n.Data.(ReminderData).StartTime)
			}

			// reminders are sent once per session
			n, err = env.Svc.SendReminders(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func Test_service_SendReminders_disabled(t *testing.T) {
	env := testutil.Setup(t, testutil.Today.Add(8*time.Hour+50*time.Minute))
	ctx := context.Background()

	off := false
	_, err := env.Svc.UpdateSettings(ctx, SettingsPatch{EmailNotifications: &off, PushNotifications: &off})
	require.NoError(t, err)

	n, err := env.Svc.SendReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func Test_service_ExportRecords(t *testing.T) {
	env := testutil.Setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		courseID string
		wantRows int
	}{
		{name: "all", wantRows: 14},
		{name: "CS301", courseID: testutil.CS301, wantRows: 10},
		{name: "MATH201 by code", courseID: "MATH201", wantRows: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, env.Svc.ExportRecords(ctx, tt.courseID, &buf))

			rows, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)
			require.Len(t, rows, tt.wantRows+1)
			assert.Equal(t, "date", rows[0][0])
			assert.Equal(t, "status", rows[0][7])
			for _, row := range rows[1:] {
				_, err := ParseDate(row[0])
				assert.NoError(t, err)
			}
		})
	}

	var buf bytes.Buffer
	err := env.Svc.ExportRecords(ctx, "crs-nope", &buf)
	assert.Equal(t, ErrCourseNotFound, errors.Cause(err))
	assert.Zero(t, buf.Len())
}
