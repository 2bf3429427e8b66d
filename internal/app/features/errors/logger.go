// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with request context and renders the
// user-facing error page. Internal error details are never shown.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id, ok := auth.CurrentIdentity(r); ok {
		fs = append(fs, zap.String("uid", id.UID))
	}
	return fs
}

// LogServerError logs msg at error level and renders a 500 page with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Error(msg, e.fields(r, err)...)
	e.renderMessage(w, r, http.StatusInternalServerError, "Something went wrong", userMsg, backURL)
}

// LogBadRequest logs msg at warn level and renders a 400 page with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.Log.Warn(msg, e.fields(r, err)...)
	e.renderMessage(w, r, http.StatusBadRequest, "Bad request", userMsg, backURL)
}

func (e *ErrorLogger) renderMessage(w http.ResponseWriter, r *http.Request, status int, title, userMsg, backURL string) {
	data := pageData{Message: userMsg}
	data.BaseVM = viewdata.NewBaseVM(r, title, "/")
	if backURL != "" {
		data.BackURL = backURL
	}
	render(w, r, status, "error_message", data)
}
