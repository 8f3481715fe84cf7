package attendance

import (
	"math"
	"sort"
	"time"
)

type Summary struct {
	Total        int
	Attended     int
	Percentage   float64
	LastAttended *time.Time
}

// roundPercentage returns part/total as a percentage rounded half-up to 1 decimal.
func roundPercentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Floor(float64(part)/float64(total)*1000+0.5) / 10
}

// ComputeCourseAttendance summarises the records of one course.
func ComputeCourseAttendance(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		if !rec.Status.Attended() {
			continue
		}
		s.Attended++
		if s.LastAttended == nil || rec.Date.After(*s.LastAttended) {
			d := rec.Date
			s.LastAttended = &d
		}
	}
	s.Percentage = roundPercentage(s.Attended, s.Total)
	return s
}

// ComputeOverallStats aggregates courses. At-risk courses are re-classified with t
// rather than trusting the stored WarningLevel.
func ComputeOverallStats(courses []CourseAttendance, t Thresholds) Stats {
	stats := Stats{TotalCourses: len(courses)}
	for _, c := range courses {
		stats.TotalSessions += c.TotalSessions
		stats.AttendedSessions += c.AttendedSessions
		for _, rec := range c.Records {
			switch rec.Status {
			case StatusAbsent:
				stats.MissedSessions++
			case StatusExcused:
				stats.ExcusedSessions++
			case StatusLate:
				stats.LateSessions++
			}
		}
		if ClassifyWarningLevel(c.AttendancePercentage, t).AtRisk() {
			stats.CoursesAtRisk++
		}
	}
	stats.OverallPercentage = roundPercentage(stats.AttendedSessions, stats.TotalSessions)
	return stats
}

// BuildCourseAttendance assembles the rollup of a course from its records and its
// unmarked sessions. The earliest unmarked session dated `today` or later is the next one.
func BuildCourseAttendance(c Course, records []Record, unmarked []Session, today time.Time, t Thresholds) CourseAttendance {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)

	sum := ComputeCourseAttendance(sorted)
	ca := CourseAttendance{
		CourseID:             c.ID,
		CourseCode:           c.Code,
		CourseName:           c.Name,
		Lecturer:             c.Lecturer,
		TotalSessions:        sum.Total,
		AttendedSessions:     sum.Attended,
		AttendancePercentage: sum.Percentage,
		LastAttended:         sum.LastAttended,
		Records:              sorted,
		WarningLevel:         ClassifyWarningLevel(sum.Percentage, t),
	}

	today = DateOf(today)
	var next *Session
	for i := range unmarked {
		sess := unmarked[i]
		if sess.Date.Before(today) {
			continue
		}
		if next == nil || sess.StartsAt().Before(next.StartsAt()) {
			next = &sess
		}
	}
	if next != nil {
		ca.NextSession = &NextSession{
			SessionID:   next.ID,
			Date:        next.Date,
			StartTime:   next.StartTime,
			EndTime:     next.EndTime,
			Location:    next.Location,
			SessionType: next.SessionType,
		}
	}
	return ca
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].StartTime < records[j].StartTime
	})
}
