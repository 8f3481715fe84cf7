package attendance

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusExcused, StatusLate:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts towards attendance.
// Late counts as attended for thresholds but is still tracked separately.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

type MarkingMethod string

const (
	MethodQR        MarkingMethod = "qr"
	MethodBiometric MarkingMethod = "biometric"
	MethodManual    MarkingMethod = "manual"
	MethodSelf      MarkingMethod = "self"
)

func (m MarkingMethod) Valid() bool {
	switch m {
	case MethodQR, MethodBiometric, MethodManual, MethodSelf:
		return true
	default:
		return false
	}
}

type SessionType string

const (
	SessionLecture  SessionType = "lecture"
	SessionTutorial SessionType = "tutorial"
	SessionLab      SessionType = "lab"
	SessionSeminar  SessionType = "seminar"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionLecture, SessionTutorial, SessionLab, SessionSeminar:
		return true
	default:
		return false
	}
}

type Course struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Lecturer string `json:"lecturer"`
	Credits  int    `json:"credits"`
}

// Session is one scheduled class meeting that can be marked for attendance.
type Session struct {
	ID          string      `json:"id"`
	CourseID    string      `json:"course_id"`
	Date        time.Time   `json:"date"`       // UTC midnight
	StartTime   string      `json:"start_time"` // 15:04
	EndTime     string      `json:"end_time"`
	Duration    int         `json:"duration"` // minutes
	SessionType SessionType `json:"session_type"`
	Location    string      `json:"location"`
}

// StartsAt combines the session date and start time.
func (s Session) StartsAt() time.Time {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return s.Date
	}
	return s.Date.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
}

// Record is one marked class session. Records are never edited once created.
type Record struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	CourseID      string        `json:"course_id"`
	CourseCode    string        `json:"course_code"`
	CourseName    string        `json:"course_name"`
	Date          time.Time     `json:"date"`
	StartTime     string        `json:"start_time"`
	EndTime       string        `json:"end_time"`
	Duration      int           `json:"duration"`
	Status        Status        `json:"status"`
	MarkedBy      string        `json:"marked_by"`
	MarkingMethod MarkingMethod `json:"marking_method"`
	SessionType   SessionType   `json:"session_type"`
	Location      string        `json:"location"`
	Notes         string        `json:"notes,omitempty"`
}

// NextSession describes a future class of a course.
type NextSession struct {
	SessionID   string      `json:"session_id"`
	Date        time.Time   `json:"date"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	Location    string      `json:"location"`
	SessionType SessionType `json:"session_type"`
}

// CourseAttendance is the per-course rollup. WarningLevel is derived from the
// percentage and the thresholds it was built with.
type CourseAttendance struct {
	CourseID             string       `json:"course_id"`
	CourseCode           string       `json:"course_code"`
	CourseName           string       `json:"course_name"`
	Lecturer             string       `json:"lecturer"`
	TotalSessions        int          `json:"total_sessions"`
	AttendedSessions     int          `json:"attended_sessions"`
	AttendancePercentage float64      `json:"attendance_percentage"`
	LastAttended         *time.Time   `json:"last_attended,omitempty"`
	NextSession          *NextSession `json:"next_session,omitempty"`
	Records              []Record     `json:"records"`
	WarningLevel         Level        `json:"warning_level"`
}

// Stats aggregates every course of the student.
type Stats struct {
	OverallPercentage float64 `json:"overall_percentage"`
	TotalCourses      int     `json:"total_courses"`
	TotalSessions     int     `json:"total_sessions"`
	AttendedSessions  int     `json:"attended_sessions"`
	MissedSessions    int     `json:"missed_sessions"`
	ExcusedSessions   int     `json:"excused_sessions"`
	LateSessions      int     `json:"late_sessions"`
	CoursesAtRisk     int     `json:"courses_at_risk"`
}

type DisplayStatus string

const (
	DisplayAttended DisplayStatus = "attended"
	DisplayMissed   DisplayStatus = "missed"
	DisplayExcused  DisplayStatus = "excused"
	DisplayLate     DisplayStatus = "late"
	DisplayUpcoming DisplayStatus = "upcoming"
)

// CalendarEvent is the calendar projection of a past record or a future session.
type CalendarEvent struct {
	ID          string        `json:"id"`
	CourseID    string        `json:"course_id"`
	CourseCode  string        `json:"course_code"`
	CourseName  string        `json:"course_name"`
	Date        time.Time     `json:"date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	Location    string        `json:"location"`
	SessionType SessionType   `json:"session_type"`
	Status      DisplayStatus `json:"status"`
}

type CalendarDay struct {
	Date   string          `json:"date"` // 2006-01-02
	Status DisplayStatus   `json:"status"`
	Events []CalendarEvent `json:"events"`
}

type WeekSchedule struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Days  []CalendarDay `json:"days"` // Monday..Sunday, empty days included
}

type MonthlyStat struct {
	Month   string     `json:"month"` // Jan 2006
	Year    int        `json:"year"`
	MonthNo time.Month `json:"month_no"`
	Present int        `json:"present"`
	Absent  int        `json:"absent"`
	Excused int        `json:"excused"`
	Late    int        `json:"late"`
	Total   int        `json:"total"`
}

// DateRange is inclusive on both ends; a zero bound is open.
type DateRange struct {
	From time.Time `query:"from"`
	To   time.Time `query:"to"`
}

func (r DateRange) Contains(d time.Time) bool {
	d = DateOf(d)
	if !r.From.IsZero() && d.Before(DateOf(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(DateOf(r.To)) {
		return false
	}
	return true
}

type RecordFilter struct {
	CourseID string
	Range    DateRange
}

type SessionFilter struct {
	CourseID string
	Range    DateRange
	Unmarked bool
}

// MarkRequest contains information needed to mark a session.
type MarkRequest struct {
	SessionID string        `json:"session_id" validate:"required"`
	Status    Status        `json:"status" validate:"required,oneof=present absent excused late"`
	Method    MarkingMethod `json:"method" validate:"required,oneof=qr biometric manual self"`
	MarkedBy  string        `json:"marked_by"`
	Notes     string        `json:"notes"`
}

func (mr *MarkRequest) Clean() {
	mr.SessionID = strings.TrimSpace(mr.SessionID)
	mr.Status = Status(strings.ToLower(strings.TrimSpace(string(mr.Status))))
	mr.Method = MarkingMethod(strings.ToLower(strings.TrimSpace(string(mr.Method))))
	mr.MarkedBy = strings.TrimSpace(mr.MarkedBy)
	mr.Notes = strings.TrimSpace(mr.Notes)
}

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar day (UTC).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WallClock reads the date and clock of t as if they were UTC, the convention
// session dates and start times are stored in.
func WallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, m, d, h, mi, sec, t.Nanosecond(), time.UTC)
}

// DateKey formats the calendar day of t as an ISO date.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses an ISO date (2006-01-02).
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
}
