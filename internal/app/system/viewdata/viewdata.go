// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/waffle/pantry/httpnav"
)

// SiteName is shown in the layout header and page titles.
const SiteName = "Support Desk"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from session + guard middleware)
	IsLoggedIn   bool
	Role         string
	UserEmail    string
	DashboardURL string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
}

// NewBaseVM creates a populated BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:     SiteName,
		Title:        title,
		BackURL:      httpnav.ResolveBackURL(r, backDefault),
		CurrentPath:  httpnav.CurrentPath(r),
		DashboardURL: guard.LoginPath,
	}
	if id, ok := auth.CurrentIdentity(r); ok {
		vm.IsLoggedIn = true
		vm.UserEmail = id.Email
	}
	if role, ok := guard.RoleFrom(r.Context()); ok {
		vm.Role = string(role)
		vm.DashboardURL = guard.DashboardPath(role)
	}
	return vm
}
