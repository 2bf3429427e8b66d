package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if got := htmlsanitize.Sanitize("   "); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitize_KeepsSafeMarkup(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("expected safe HTML preserved, got %q", got)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="javascript:alert('xss')">Click</a>`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("expected javascript: href removed, got %q", got)
	}
}

func TestPlainText(t *testing.T) {
	got := htmlsanitize.PlainText("<b>Billing</b> portal ")
	if got != "Billing portal" {
		t.Errorf("PlainText = %q, want %q", got, "Billing portal")
	}
}

func TestPlainText_KeepsEntitiesAsText(t *testing.T) {
	got := htmlsanitize.PlainText("R&D <i>login</i> fails")
	if got != "R&D login fails" {
		t.Errorf("PlainText = %q, want %q", got, "R&D login fails")
	}
}
