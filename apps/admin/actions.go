package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

func (cli *commandLine) export(ctx context.Context, course, out string) (err error) {
	id, err := cli.resolveCourse(ctx, course)
	if err != nil {
		return err
	}

	var w io.Writer = cli.out
	if out != "" {
		f, cErr := os.Create(out)
		if cErr != nil {
			return errors.Wrap(cErr, "creating export file")
		}
		defer func() {
			if cErr := f.Close(); cErr != nil && err == nil {
				err = errors.Wrap(cErr, "closing export file")
			}
		}()
		w = f
	}
	return cli.svc.ExportRecords(ctx, id, w)
}

func (cli *commandLine) mark(ctx context.Context, req attendance.MarkRequest) error {
	rec, err := cli.svc.MarkAttendance(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "marked %s %s %s as %s (by %s)\n",
		rec.CourseCode, attendance.DateKey(rec.Date), rec.StartTime, rec.Status, rec.MarkedBy)
	return nil
}

func (cli *commandLine) remind(ctx context.Context) error {
	n, err := cli.svc.SendReminders(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "sent %d reminders\n", n)
	return nil
}

// excuse fills an excuse form the way the portal does and submits it.
func (cli *commandLine) excuse(ctx context.Context, course, date, reason string, docs []string) error {
	id, err := cli.resolveCourse(ctx, course)
	if err != nil {
		return err
	}

	form := attendance.NewExcuseForm(cli.svc, cli.confirmWindow)
	defer form.Close()
	form.SetCourse(id)
	form.SetDate(date)
	form.SetReason(reason)

	for _, p := range docs {
		if err := cli.attach(ctx, form, p); err != nil {
			return err
		}
	}

	ex, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "excuse %s for %s on %s is %s (%d documents)\n",
		ex.ID, ex.CourseCode, attendance.DateKey(ex.Date), ex.Status, len(ex.Documents))
	return nil
}

func (cli *commandLine) attach(ctx context.Context, form *attendance.ExcuseForm, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	defer f.Close()

	doc, err := form.Attach(ctx, filepath.Base(path), f)
	if err != nil {
		return errors.Wrapf(err, "attaching %s", filepath.Base(path))
	}
	fmt.Fprintf(cli.out, "attached %s (%s, %d bytes)\n", doc.Filename, doc.ContentType, doc.Size)
	return nil
}
