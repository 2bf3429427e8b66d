// internal/app/features/formconfig/templates.go
package formconfig

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "formconfig",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
