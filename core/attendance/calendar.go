package attendance

import (
	"sort"
	"time"
)

// EventsFromRecords projects past records onto the calendar.
func EventsFromRecords(records []Record) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, CalendarEvent{
			ID:          rec.ID,
			CourseID:    rec.CourseID,
			CourseCode:  rec.CourseCode,
			CourseName:  rec.CourseName,
			Date:        rec.Date,
			StartTime:   rec.StartTime,
			EndTime:     rec.EndTime,
			Location:    rec.Location,
			SessionType: rec.SessionType,
			Status:      ToDisplayStatus(rec.Status),
		})
	}
	return events
}

// EventsFromSessions projects unmarked future sessions onto the calendar as upcoming.
// courses is keyed by course ID and only used for codes and names.
func EventsFromSessions(sessions []Session, courses map[string]Course) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(sessions))
	for _, sess := range sessions {
		c := courses[sess.CourseID]
		events = append(events, CalendarEvent{
			ID:          sess.ID,
			CourseID:    sess.CourseID,
			CourseCode:  c.Code,
			CourseName:  c.Name,
			Date:        sess.Date,
			StartTime:   sess.StartTime,
			EndTime:     sess.EndTime,
			Location:    sess.Location,
			SessionType: sess.SessionType,
			Status:      DisplayUpcoming,
		})
	}
	return events
}

// GroupByDate buckets events by ISO date. Events keep their relative order within a day.
func GroupByDate(events []CalendarEvent) map[string][]CalendarEvent {
	groups := make(map[string][]CalendarEvent)
	for _, ev := range events {
		key := DateKey(ev.Date)
		groups[key] = append(groups[key], ev)
	}
	return groups
}

func sortedKeys(groups map[string][]CalendarEvent) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten is the inverse of GroupByDate, ordered by date.
func Flatten(groups map[string][]CalendarEvent) []CalendarEvent {
	var n int
	for _, evs := range groups {
		n += len(evs)
	}
	events := make([]CalendarEvent, 0, n)
	for _, k := range sortedKeys(groups) {
		events = append(events, groups[k]...)
	}
	return events
}

// CalendarDays turns grouped events into date-ordered days, each with one representative status.
func CalendarDays(groups map[string][]CalendarEvent) []CalendarDay {
	days := make([]CalendarDay, 0, len(groups))
	for _, k := range sortedKeys(groups) {
		if len(groups[k]) == 0 {
			continue
		}
		evs := append([]CalendarEvent(nil), groups[k]...)
		sortEvents(evs)
		days = append(days, CalendarDay{Date: k, Status: DayStatus(evs), Events: evs})
	}
	return days
}

func sortEvents(events []CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartTime < events[j].StartTime })
}

// WeekWindow returns the Monday-start week containing anchor. Sunday belongs to the
// week that started six days earlier.
func WeekWindow(anchor time.Time) [7]time.Time {
	anchor = DateOf(anchor)
	day := int(anchor.Weekday())
	diff := 1 - day
	if day == 0 {
		diff = -6
	}
	monday := anchor.AddDate(0, 0, diff)

	var week [7]time.Time
	for i := range week {
		week[i] = monday.AddDate(0, 0, i)
	}
	return week
}

// BuildWeekSchedule lays the events falling in the week of anchor onto its seven days.
func BuildWeekSchedule(anchor time.Time, events []CalendarEvent) WeekSchedule {
	week := WeekWindow(anchor)
	groups := GroupByDate(events)

	ws := WeekSchedule{Start: week[0], End: week[6], Days: make([]CalendarDay, 0, len(week))}
	for _, d := range week {
		key := DateKey(d)
		evs := groups[key]
		if evs == nil {
			evs = []CalendarEvent{}
		}
		sortEvents(evs)
		ws.Days = append(ws.Days, CalendarDay{Date: key, Status: DayStatus(evs), Events: evs})
	}
	return ws
}

type monthKey struct {
	year  int
	month time.Month
}

// MonthlyStats counts statuses per calendar month, in chronological order.
func MonthlyStats(records []Record) []MonthlyStat {
	rows := make(map[monthKey]*MonthlyStat)
	for _, rec := range records {
		k := monthKey{rec.Date.Year(), rec.Date.Month()}
		row, ok := rows[k]
		if !ok {
			row = &MonthlyStat{
				Month:   rec.Date.Format("Jan 2006"),
				Year:    k.year,
				MonthNo: k.month,
			}
			rows[k] = row
		}
		switch rec.Status {
		case StatusPresent:
			row.Present++
		case StatusAbsent:
			row.Absent++
		case StatusExcused:
			row.Excused++
		case StatusLate:
			row.Late++
		}
		row.Total++
	}

	stats := make([]MonthlyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, *row)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Year != stats[j].Year {
			return stats[i].Year < stats[j].Year
		}
		return stats[i].MonthNo < stats[j].MonthNo
	})
	return stats
}
