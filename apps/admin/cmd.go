package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

var (
	termSizeFunc = term.GetSize // mockable

	errHelp = errors.New("help provided")
)

const defaultWidth = 80

type commandLine struct {
	svc           attendance.Service
	out           io.Writer
	confirmWindow time.Duration // excuse form confirmation window
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  report [-course CODE]                       - attendance summary, overall or for one course")
	fmt.Fprintln(cli.out, "  week [-date YYYY-MM-DD]                     - week schedule (current week by default)")
	fmt.Fprintln(cli.out, "  monthly [-course CODE]                      - monthly attendance breakdown")
	fmt.Fprintln(cli.out, "  export [-course CODE] [-out FILE]           - export records as CSV (stdout by default)")
	fmt.Fprintln(cli.out, "  mark -session ID -status STATUS [-method M] - mark a session")
	fmt.Fprintln(cli.out, "  remind                                      - send reminders for classes starting soon")
	fmt.Fprintln(cli.out, "  excuse -course CODE -date YYYY-MM-DD -reason TEXT [-docs FILE,...] - submit an absence excuse")
}

// width returns the terminal width, or defaultWidth when stdout is not a terminal.
func (cli *commandLine) width() int {
	w, _, err := termSizeFunc(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	reportCmd := flag.NewFlagSet("report", flag.ContinueOnError)
	reportCourse := reportCmd.String("course", "", "The course ID or code.")

	weekCmd := flag.NewFlagSet("week", flag.ContinueOnError)
	weekDate := weekCmd.String("date", "", "Any day of the week, as YYYY-MM-DD.")

	monthlyCmd := flag.NewFlagSet("monthly", flag.ContinueOnError)
	monthlyCourse := monthlyCmd.String("course", "", "The course ID or code.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCourse := exportCmd.String("course", "", "The course ID or code.")
	exportOut := exportCmd.String("out", "", "The output file.")

	markCmd := flag.NewFlagSet("mark", flag.ContinueOnError)
	markSession := markCmd.String("session", "", "The session ID.")
	markStatus := markCmd.String("status", "", "present|absent|late|excused")
	markMethod := markCmd.String("method", string(attendance.MethodManual), "qr|biometric|manual|self")

	excuseCmd := flag.NewFlagSet("excuse", flag.ContinueOnError)
	excuseCourse := excuseCmd.String("course", "", "The course ID or code.")
	excuseDate := excuseCmd.String("date", "", "The day missed, as YYYY-MM-DD.")
	excuseReason := excuseCmd.String("reason", "", "Why the class was missed.")
	excuseDocs := excuseCmd.String("docs", "", "Comma separated supporting documents (PDF, JPEG or PNG).")

	for _, fs := range []*flag.FlagSet{reportCmd, weekCmd, monthlyCmd, exportCmd, markCmd, excuseCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.report(ctx, *reportCourse)
	case "week":
		if err := weekCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		var anchor time.Time
		if *weekDate != "" {
			d, err := attendance.ParseDate(*weekDate)
			if err != nil {
				return errors.Errorf("invalid date %q, expected YYYY-MM-DD", *weekDate)
			}
			anchor = d
		}
		return cli.week(ctx, anchor)
	case "monthly":
		if err := monthlyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.monthly(ctx, *monthlyCourse)
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.export(ctx, *exportCourse, *exportOut)
	case "mark":
		if err := markCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *markSession == "" || *markStatus == "" {
			markCmd.Usage()
			return errHelp
		}
		return cli.mark(ctx, attendance.MarkRequest{
			SessionID: *markSession,
			Status:    attendance.Status(*markStatus),
			Method:    attendance.MarkingMethod(*markMethod),
		})
	case "remind":
		return cli.remind(ctx)
	case "excuse":
		if err := excuseCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		var docs []string
		for _, p := range strings.Split(*excuseDocs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				docs = append(docs, p)
			}
		}
		return cli.excuse(ctx, *excuseCourse, *excuseDate, *excuseReason, docs)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
}

// truncate shortens s to n runes, marking the cut with "…".
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func levelMark(l attendance.Level) string {
	switch l {
	case attendance.LevelCaution:
		return "~"
	case attendance.LevelWarning:
		return "!"
	case attendance.LevelCritical:
		return "!!"
	default:
		return ""
	}
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ", ")
}
