// internal/app/system/status/status.go
package status

// Profile statuses.
const (
	Active   = "active"
	Pending  = "pending"
	Disabled = "disabled"
)

// Valid reports whether s is a known profile status.
func Valid(s string) bool {
	switch s {
	case Active, Pending, Disabled:
		return true
	}
	return false
}
