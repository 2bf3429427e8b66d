// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc   = bluemonday.UGCPolicy()
	plain = bluemonday.StrictPolicy()
)

// Sanitize strips unsafe markup from user-supplied HTML such as project
// descriptions and ticket comments.
func Sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText removes every tag, leaving unescaped text content only. The
// result must still be escaped on output.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(s)))
}

// SafeHTML sanitizes s and marks the result as trusted for templates.
func SafeHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}
