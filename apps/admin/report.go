package main

import (
	"context"
	"fmt"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

const recentRecords = 10

func (cli *commandLine) report(ctx context.Context, course string) error {
	if course != "" {
		id, err := cli.resolveCourse(ctx, course)
		if err != nil {
			return err
		}
		return cli.courseReport(ctx, id)
	}

	stats, err := cli.svc.GetOverallStats(ctx)
	if err != nil {
		return err
	}
	courses, err := cli.svc.ListCourses(ctx)
	if err != nil {
		return err
	}
	req, err := cli.svc.GetRequirement(ctx, "")
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Overall: %.1f%% (%d/%d sessions)\n", stats.OverallPercentage, stats.AttendedSessions, stats.TotalSessions)
	fmt.Fprintf(cli.out, "Missed %d | Excused %d | Late %d | Courses at risk %d\n",
		stats.MissedSessions, stats.ExcusedSessions, stats.LateSessions, stats.CoursesAtRisk)
	fmt.Fprintln(cli.out, req.Message)
	fmt.Fprintln(cli.out)

	// code, attendance, level and next session take ~60 columns
	nameWidth := cli.width() - 60
	if nameWidth < 10 {
		nameWidth = 10
	}
	tw := cli.newTable()
	fmt.Fprintln(tw, "CODE\tCOURSE\tATTENDED\t%\tLEVEL\tNEXT SESSION")
	for _, ca := range courses {
		next := "-"
		if ns := ca.NextSession; ns != nil {
			next = fmt.Sprintf("%s %s", attendance.DateKey(ns.Date), ns.StartTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%.1f\t%s%s\t%s\n",
			ca.CourseCode, truncate(ca.CourseName, nameWidth), ca.AttendedSessions, ca.TotalSessions,
			ca.AttendancePercentage, ca.WarningLevel, levelMark(ca.WarningLevel), next)
	}
	return tw.Flush()
}

func (cli *commandLine) courseReport(ctx context.Context, courseID string) error {
	ca, err := cli.svc.GetCourseAttendance(ctx, courseID)
	if err != nil {
		return err
	}
	req, err := cli.svc.GetRequirement(ctx, courseID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s - %s (%s)\n", ca.CourseCode, ca.CourseName, ca.Lecturer)
	fmt.Fprintf(cli.out, "Attendance: %.1f%% (%d/%d sessions), level %s\n",
		ca.AttendancePercentage, ca.AttendedSessions, ca.TotalSessions, ca.WarningLevel)
	if ca.LastAttended != nil {
		fmt.Fprintf(cli.out, "Last attended: %s\n", attendance.DateKey(*ca.LastAttended))
	}
	if ns := ca.NextSession; ns != nil {
		fmt.Fprintf(cli.out, "Next session: %s %s-%s, %s\n", attendance.DateKey(ns.Date), ns.StartTime, ns.EndTime, ns.Location)
	}
	fmt.Fprintln(cli.out, req.Message)
	if len(ca.Records) == 0 {
		return nil
	}
	fmt.Fprintln(cli.out)

	records := ca.Records
	if len(records) > recentRecords {
		records = records[len(records)-recentRecords:]
	}
	tw := cli.newTable()
	fmt.Fprintln(tw, "DATE\tTIME\tTYPE\tSTATUS\tMARKED BY\tNOTES")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%s\t%s\t%s\n",
			attendance.DateKey(r.Date), r.StartTime, r.EndTime, r.SessionType, r.Status, r.MarkedBy, r.Notes)
	}
	return tw.Flush()
}
