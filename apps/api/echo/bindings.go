package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

var (
	fromParam   = "from"
	toParam     = "to"
	dateParam   = "date"
	courseParam = "course_id"

	errInvalidDate = "invalid date, expected YYYY-MM-DD"
)

// bindDate parses the ISO date query param `name`. An absent param yields the zero time.
func bindDate(ctx echo.Context, name string) (time.Time, *core.FieldError) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	d, err := attendance.ParseDate(val)
	if err != nil {
		return time.Time{}, &core.FieldError{Field: name, Error: errInvalidDate}
	}
	return d, nil
}

// bindDateRange reads the `from` and `to` query params.
func bindDateRange(ctx echo.Context) (attendance.DateRange, error) {
	var (
		r    attendance.DateRange
		flds []core.FieldError
		fErr *core.FieldError
	)
	if r.From, fErr = bindDate(ctx, fromParam); fErr != nil {
		flds = append(flds, *fErr)
	}
	if r.To, fErr = bindDate(ctx, toParam); fErr != nil {
		flds = append(flds, *fErr)
	}
	if len(flds) > 0 {
		return r, core.NewValidationError(nil, flds...)
	}
	return r, nil
}
