package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionInactive = echo.NewHTTPError(http.StatusUnauthorized, "session expired or signed out")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errPendingApproval = echo.NewHTTPError(http.StatusForbidden, gate.MsgPendingApproval)
	errUnknownRole     = echo.NewHTTPError(http.StatusForbidden, gate.MsgUnknownRole)
)

// statusCodes maps domain sentinels to their HTTP status.
var statusCodes = map[error]int{
	approval.ErrForbidden:        http.StatusForbidden,
	course.ErrForbidden:          http.StatusForbidden,
	course.ErrNotEnrolled:        http.StatusForbidden,
	approval.ErrNotFound:         http.StatusNotFound,
	auth.ErrNotFound:             http.StatusNotFound,
	course.ErrNotFound:           http.StatusNotFound,
	course.ErrAssignmentNotFound: http.StatusNotFound,
	course.ErrSubmissionNotFound: http.StatusNotFound,
	notification.ErrNotFound:     http.StatusNotFound,
	profile.ErrNotFound:          http.StatusNotFound,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.AuthError:
			code = http.StatusUnauthorized
			message = origErr.Msg
		default:
			if c, ok := statusCodes[cause]; ok {
				code = c
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if p, ok := getContextProfile(ctx); ok {
				args = append(args, p.Person())
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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
