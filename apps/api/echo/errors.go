package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		origErr := errors.Cause(err)
		switch e := origErr.(type) {
		case *echo.HTTPError:
			if e.Internal != nil {
				if herr, ok := e.Internal.(*echo.HTTPError); ok {
					e = herr
				}
			}
			code = e.Code
			message = e.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(e))
			for _, vErr := range e {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if e.Fields != nil {
				fldErrs := make(map[string]string, len(e.Fields))
				for _, fErr := range e.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = e.Error()
			}
			code = http.StatusBadRequest
		case *attendance.MarkError:
			code = http.StatusNotFound
			if e.Err == attendance.ErrDuplicateMark {
				code = http.StatusConflict
			}
			message = e.Error()
		default:
			switch origErr {
			case attendance.ErrCourseNotFound, attendance.ErrSessionNotFound, attendance.ErrDocumentNotFound:
				code = http.StatusNotFound
				message = origErr.Error()
			case core.ErrSimulatedTimeout, context.DeadlineExceeded:
				code = http.StatusGatewayTimeout
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
					"method": ctx.Request().Method,
					"path":   ctx.Path(),
				})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
