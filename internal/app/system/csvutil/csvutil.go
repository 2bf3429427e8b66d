// internal/app/system/csvutil/csvutil.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/kpi"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// MaxRows caps a single export.
const MaxRows = 20000

// KPIHeader is the first line of a KPI export.
var KPIHeader = []string{"ticket_number", "subject", "response_minutes", "resolution_minutes", "status"}

// TicketHeader is the first line of a ticket list export.
var TicketHeader = []string{"ticket_number", "subject", "project", "status", "assigned_to", "created_by", "created", "last_updated"}

// Writer streams CSV rows to an HTTP response.
type Writer struct {
	cw   *csv.Writer
	rows int
}

// NewWriter sets the download headers, writes a UTF-8 BOM (for Excel) and
// the header row.
func NewWriter(w http.ResponseWriter, filename string, header []string) (*Writer, error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return nil, fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{cw: cw}, nil
}

// Write appends one row. Rows past MaxRows are dropped.
func (w *Writer) Write(row []string) error {
	if w.rows >= MaxRows {
		return nil
	}
	w.rows++
	return w.cw.Write(row)
}

// Flush flushes buffered rows and returns the first write error.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// Rows is the number of data rows written.
func (w *Writer) Rows() int { return w.rows }

// KPIRecord formats one KPI row. Missing durations are left blank.
func KPIRecord(r kpi.Row) []string {
	return []string{
		strconv.FormatInt(r.Number, 10),
		SanitizeField(r.Subject),
		Minutes(r.ResponseMinutes),
		Minutes(r.ResolutionMinutes),
		r.Status,
	}
}

// TicketRecord formats one ticket for a list export.
func TicketRecord(t models.Ticket) []string {
	return []string{
		strconv.FormatInt(t.Number, 10),
		SanitizeField(t.Subject),
		SanitizeField(t.Project),
		t.Status,
		t.AssignedTo.Email,
		t.CreatedBy,
		formatTime(t.Created),
		formatTime(t.LastUpdated),
	}
}

// Minutes renders m with two decimals, or "" when nil.
func Minutes(m *float64) string {
	if m == nil {
		return ""
	}
	return strconv.FormatFloat(*m, 'f', 2, 64)
}

// SanitizeField prevents spreadsheet formula injection.
func SanitizeField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
