package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

func (cli *commandLine) week(ctx context.Context, anchor time.Time) error {
	ws, err := cli.svc.GetWeekSchedule(ctx, anchor)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Week of %s - %s\n", attendance.DateKey(ws.Start), attendance.DateKey(ws.End))
	locWidth := cli.width() - 50
	if locWidth < 10 {
		locWidth = 10
	}
	for _, day := range ws.Days {
		d, _ := attendance.ParseDate(day.Date)
		fmt.Fprintf(cli.out, "\n%s", d.Format("Mon 02 Jan"))
		if day.Status != "" {
			fmt.Fprintf(cli.out, " [%s]", day.Status)
		}
		fmt.Fprintln(cli.out)
		if len(day.Events) == 0 {
			fmt.Fprintln(cli.out, "  no classes")
			continue
		}

		tw := cli.newTable()
		for _, ev := range day.Events {
			fmt.Fprintf(tw, "  %s-%s\t%s\t%s\t%s\t%s\n",
				ev.StartTime, ev.EndTime, ev.CourseCode, ev.SessionType, truncate(ev.Location, locWidth), ev.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) monthly(ctx context.Context, course string) error {
	id, err := cli.resolveCourse(ctx, course)
	if err != nil {
		return err
	}
	stats, err := cli.svc.GetMonthlyStats(ctx, id)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(cli.out, "no records")
		return nil
	}

	tw := cli.newTable()
	fmt.Fprintln(tw, "MONTH\tPRESENT\tLATE\tEXCUSED\tABSENT\tTOTAL\tATTENDED %")
	for _, m := range stats {
		var rate float64
		if m.Total > 0 {
			rate = float64(m.Present+m.Late) / float64(m.Total) * 100
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f\n", m.Month, m.Present, m.Late, m.Excused, m.Absent, m.Total, rate)
	}
	return tw.Flush()
}
