// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/viewdata"
)

// RenderUnauthorized shows a friendly "sign in required" page.
// If backURL is empty, it will default to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, "Sign in required", backURL),
		Message: "Please sign in to continue.",
	}
	data.BackURL = backURL
	render(w, r, http.StatusUnauthorized, "error_forbidden", data)
}

// RenderForbidden shows a friendly access error page with a message.
// If backURL is empty, it resolves a safe back URL falling back to the
// caller's dashboard.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	data := pageData{Message: msg}
	data.BaseVM = viewdata.NewBaseVM(r, "Access denied", "/")
	if backURL != "" {
		data.BackURL = backURL
	} else if data.BackURL == "/" {
		data.BackURL = data.DashboardURL
	}
	render(w, r, http.StatusForbidden, "error_forbidden", data)
}

// RenderNotFound shows the not-found page.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg string) {
	if msg == "" {
		msg = "The page you were looking for does not exist."
	}
	data := pageData{Message: msg}
	data.BaseVM = viewdata.NewBaseVM(r, "Not found", "/")
	data.BackURL = data.DashboardURL
	render(w, r, http.StatusNotFound, "error_message", data)
}
