package testutil

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/services/logger"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/storage/database/inmem"
)

// Today is the frozen current day of the fixture, a Wednesday.
var Today = time.Date(2024, time.October, 16, 0, 0, 0, 0, time.UTC)

// Fixture course IDs.
const (
	CS301   = "crs-cs301"
	MATH201 = "crs-math201"
)

type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Repo       attendance.Repository
	Svc        attendance.Service
	Notifier   *NotifierMock
	Validate   *validator.Validate
	Translator ut.Translator
}

// Setup returns a service over the Fixture with time frozen at `now` (Today 08:00 if zero).
func Setup(t *testing.T, now ...time.Time) *Env {
	t.Helper()
	at := Today.Add(8 * time.Hour)
	if len(now) > 0 && !now[0].IsZero() {
		at = now[0]
	}
	FreezeTime(t, at)

	conf := core.NewTestConfig()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	db.Seed(Fixture())

	env := &Env{
		Conf:       conf,
		Logger:     NewLogger(conf),
		DB:         db,
		Repo:       inmemdb.NewAttendanceRepository(db),
		Notifier:   new(NotifierMock),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
	}
	core.InitValidators(env.Validate, env.Translator)
	attendance.InitValidators(env.Validate, env.Translator)

	env.Svc = attendance.NewService(
		env.Repo,
		env.Notifier,
		env.Logger,
		env.Validate,
		env.Translator,
		attendance.OptionsFromConfig(conf),
	)
	return env
}

// NewLogger returns a Rollbar logger that neither reports nor prints.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// FreezeTime pins attendance.NowFunc to `now` for the duration of the test.
func FreezeTime(t *testing.T, now time.Time) {
	prev := attendance.NowFunc
	attendance.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { attendance.NowFunc = prev })
}

// Day returns the fixture date `d` days away from Today.
func Day(d int) time.Time {
	return Today.AddDate(0, 0, d)
}

// Fixture is a small snapshot around Today:
//   CS301:   10 marked sessions (7 present, 1 late, 1 excused, 1 absent) = 80%;
//            upcoming today 09:00 and in two days.
//   MATH201: 4 marked sessions (3 present, 1 absent) = 75%;
//            an unmarked past session yesterday and an upcoming one today 10:00.
func Fixture() attendance.MockData {
	cs := attendance.Course{ID: CS301, Code: "CS301", Name: "Data Structures and Algorithms", Lecturer: "Dr. Sarah Johnson", Credits: 4}
	math := attendance.Course{ID: MATH201, Code: "MATH201", Name: "Linear Algebra", Lecturer: "Dr. Emily Williams", Credits: 3}
	data := attendance.MockData{Courses: []attendance.Course{cs, math}}

	csStatuses := []attendance.Status{
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent,
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent,
		attendance.StatusLate, attendance.StatusExcused, attendance.StatusAbsent,
	}
	for i, st := range csStatuses {
		sess := newSession(cs, Day(-15+i), "09:00", 120, attendance.SessionLecture, "Room 204")
		data.Sessions = append(data.Sessions, sess)
		data.Records = append(data.Records, newRecord(cs, sess, st))
	}
	data.Sessions = append(data.Sessions,
		newSession(cs, Today, "09:00", 120, attendance.SessionLecture, "Room 204"),
		newSession(cs, Day(2), "09:00", 120, attendance.SessionLab, "Computer Lab 3"),
	)

	mathStatuses := []attendance.Status{
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent, attendance.StatusAbsent,
	}
	for i, st := range mathStatuses {
		sess := newSession(math, Day(-9+i), "14:00", 60, attendance.SessionTutorial, "LT1")
		data.Sessions = append(data.Sessions, sess)
		data.Records = append(data.Records, newRecord(math, sess, st))
	}
	data.Sessions = append(data.Sessions,
		newSession(math, Day(-1), "14:00", 60, attendance.SessionTutorial, "LT1"),
		newSession(math, Today, "10:00", 90, attendance.SessionLecture, "LT1"),
	)
	return data
}

// SessionID is the ID of the fixture session of course `code` (lower case) on `d`.
func SessionID(code string, d time.Time) string {
	return fmt.Sprintf("%s-%s", code, d.Format("20060102"))
}

func newSession(c attendance.Course, d time.Time, start string, duration int, st attendance.SessionType, loc string) attendance.Session {
	sess := attendance.Session{
		ID:          SessionID(strings.ToLower(c.Code), d),
		CourseID:    c.ID,
		Date:        d,
		StartTime:   start,
		Duration:    duration,
		SessionType: st,
		Location:    loc,
	}
	sess.EndTime = sess.StartsAt().Add(time.Duration(duration) * time.Minute).Format("15:04")
	return sess
}

func newRecord(c attendance.Course, sess attendance.Session, st attendance.Status) attendance.Record {
	return attendance.Record{
		ID:            "rec-" + sess.ID,
		SessionID:     sess.ID,
		CourseID:      c.ID,
		CourseCode:    c.Code,
		CourseName:    c.Name,
		Date:          sess.Date,
		StartTime:     sess.StartTime,
		EndTime:       sess.EndTime,
		Duration:      sess.Duration,
		Status:        st,
		MarkedBy:      "QR Scanner",
		MarkingMethod: attendance.MethodQR,
		SessionType:   sess.SessionType,
		Location:      sess.Location,
	}
}

// NotifierMock records notifications instead of sending them.
type NotifierMock struct {
	Err error // returned by Notify when set

	mu   sync.Mutex
	sent []attendance.Notification
}

var _ attendance.Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Notify(_ context.Context, n attendance.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.Err
}

func (m *NotifierMock) Sent() []attendance.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attendance.Notification(nil), m.sent...)
}
