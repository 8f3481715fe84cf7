package attendance

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// MockData is a generated attendance snapshot.
type MockData struct {
	Courses  []Course
	Sessions []Session
	Records  []Record
}

type slot struct {
	weekday     time.Weekday
	startTime   string
	duration    int
	sessionType SessionType
	location    string
}

type mockCourse struct {
	course Course
	slots  []slot
	// cumulative probabilities of present, late, excused (remaining: absent)
	present, late, excused float64
}

var mockCourses = []mockCourse{
	{
		course: Course{ID: "crs-cs301", Code: "CS301", Name: "Data Structures and Algorithms", Lecturer: "Dr. Sarah Johnson", Credits: 4},
		slots: []slot{
			{time.Monday, "09:00", 120, SessionLecture, "Science Block, Room 204"},
			{time.Wednesday, "14:00", 60, SessionTutorial, "Science Block, Room 112"},
			{time.Friday, "10:00", 120, SessionLab, "Computer Lab 3"},
		},
		present: .88, late: .95, excused: .98,
	},
	{
		course: Course{ID: "crs-cs302", Code: "CS302", Name: "Database Systems", Lecturer: "Prof. Michael Chen", Credits: 3},
		slots: []slot{
			{time.Tuesday, "11:00", 120, SessionLecture, "Main Hall B"},
			{time.Thursday, "15:00", 120, SessionLab, "Computer Lab 1"},
		},
		present: .70, late: .78, excused: .84,
	},
	{
		course: Course{ID: "crs-math201", Code: "MATH201", Name: "Linear Algebra", Lecturer: "Dr. Emily Williams", Credits: 3},
		slots: []slot{
			{time.Monday, "14:00", 90, SessionLecture, "Mathematics Building, LT1"},
			{time.Thursday, "09:00", 60, SessionTutorial, "Mathematics Building, Room 7"},
		},
		present: .55, late: .62, excused: .68,
	},
	{
		course: Course{ID: "crs-eng205", Code: "ENG205", Name: "Technical Writing", Lecturer: "Ms. Grace Otieno", Credits: 2},
		slots: []slot{
			{time.Wednesday, "09:00", 90, SessionSeminar, "Humanities Wing, Seminar Room 2"},
		},
		present: .80, late: .90, excused: .95,
	},
	{
		course: Course{ID: "crs-phy101", Code: "PHY101", Name: "Physics I", Lecturer: "Dr. James Mwangi", Credits: 4},
		slots: []slot{
			{time.Tuesday, "08:00", 120, SessionLecture, "Physics Theatre"},
			{time.Friday, "14:00", 180, SessionLab, "Physics Lab A"},
		},
		present: .75, late: .85, excused: .90,
	},
}

var mockMethods = []MarkingMethod{MethodQR, MethodQR, MethodBiometric, MethodManual, MethodSelf}

// GenerateMockData builds a semester snapshot around now: the sessions of the past
// `weeksBack` weeks are marked, the ones from today on for `weeksAhead` weeks are not.
// The same seed and now always yield the same data.
func GenerateMockData(now time.Time, seed int64, weeksBack, weeksAhead int) MockData {
	rnd := rand.New(rand.NewSource(seed))
	today := DateOf(now)
	start := WeekWindow(today)[0].AddDate(0, 0, -7*weeksBack)
	end := today.AddDate(0, 0, 7*weeksAhead)

	var data MockData
	for _, mc := range mockCourses {
		data.Courses = append(data.Courses, mc.course)

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			for _, sl := range mc.slots {
				if d.Weekday() != sl.weekday {
					continue
				}
				sess := Session{
					ID:          fmt.Sprintf("%s-%s-%s", strings.ToLower(mc.course.Code), d.Format("20060102"), sl.sessionType),
					CourseID:    mc.course.ID,
					Date:        d,
					StartTime:   sl.startTime,
					Duration:    sl.duration,
					SessionType: sl.sessionType,
					Location:    sl.location,
				}
				sess.EndTime = sess.StartsAt().Add(time.Duration(sl.duration) * time.Minute).Format("15:04")
				data.Sessions = append(data.Sessions, sess)

				if !d.Before(today) {
					continue
				}
				data.Records = append(data.Records, mockRecord(rnd, mc, sess))
			}
		}
	}
	return data
}

func mockRecord(rnd *rand.Rand, mc mockCourse, sess Session) Record {
	var status Status
	switch p := rnd.Float64(); {
	case p < mc.present:
		status = StatusPresent
	case p < mc.late:
		status = StatusLate
	case p < mc.excused:
		status = StatusExcused
	default:
		status = StatusAbsent
	}

	method := mockMethods[rnd.Intn(len(mockMethods))]
	rec := Record{
		ID:            "rec-" + sess.ID,
		SessionID:     sess.ID,
		CourseID:      mc.course.ID,
		CourseCode:    mc.course.Code,
		CourseName:    mc.course.Name,
		Date:          sess.Date,
		StartTime:     sess.StartTime,
		EndTime:       sess.EndTime,
		Duration:      sess.Duration,
		Status:        status,
		MarkingMethod: method,
		MarkedBy:      markedBy(method, mc.course.Lecturer),
		SessionType:   sess.SessionType,
		Location:      sess.Location,
	}
	switch status {
	case StatusExcused:
		rec.Notes = "Medical certificate submitted"
	case StatusLate:
		rec.Notes = fmt.Sprintf("Arrived %d minutes late", 5+5*rnd.Intn(4))
	}
	return rec
}

func markedBy(method MarkingMethod, lecturer string) string {
	switch method {
	case MethodQR:
		return "QR Scanner"
	case MethodBiometric:
		return "Biometric Terminal"
	case MethodSelf:
		return "Self Check-in"
	default:
		return lecturer
	}
}
