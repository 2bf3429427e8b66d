// Package kpi derives response and resolution statistics from the tickets
// assigned to one employee.
package kpi

import (
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/domain/models"
)

const (
	assignedMarker = "assigned to"
	resolvedMarker = "resolution updated"
)

// Row holds the derived timestamps of one ticket. Nil durations mean the
// timestamps needed for that metric are missing.
type Row struct {
	Number     int64
	Subject    string
	Status     string
	Created    time.Time
	AssignedAt *time.Time
	ResolvedAt *time.Time

	ResponseMinutes   *float64
	ResolutionMinutes *float64
}

// Summary aggregates the rows of assigned tickets.
type Summary struct {
	Count                int      `json:"count"`
	Resolved             int      `json:"resolved"`
	AvgResponseMinutes   *float64 `json:"avg_response_minutes"`
	AvgResolutionMinutes *float64 `json:"avg_resolution_minutes"`
	ResolutionRate       float64  `json:"resolution_rate"` // percent
}

// Analyze derives the row for one ticket.
//
// assignedAt is the first comment containing "assigned to" written by a user
// or the system; resolvedAt is the first comment containing "resolution
// updated" written by a resolver. A Resolved ticket without such a comment
// falls back to its last update time.
func Analyze(t models.Ticket) Row {
	row := Row{
		Number:  t.Number,
		Subject: t.Subject,
		Status:  t.Status,
		Created: t.Created,
	}
	for _, c := range t.Comments {
		msg := strings.ToLower(c.Message)
		if row.AssignedAt == nil && strings.Contains(msg, assignedMarker) &&
			(c.AuthorRole == models.AuthorUser || c.AuthorRole == models.AuthorSystem) {
			ts := c.Timestamp
			row.AssignedAt = &ts
		}
		if row.ResolvedAt == nil && strings.Contains(msg, resolvedMarker) && c.AuthorRole == models.AuthorResolver {
			ts := c.Timestamp
			row.ResolvedAt = &ts
		}
	}
	if row.ResolvedAt == nil && strings.EqualFold(t.Status, models.TicketResolved) && !t.LastUpdated.IsZero() {
		ts := t.LastUpdated
		row.ResolvedAt = &ts
	}

	if row.AssignedAt != nil && !t.Created.IsZero() {
		row.ResponseMinutes = minutes(row.AssignedAt.Sub(t.Created))
	}
	if row.AssignedAt != nil && row.ResolvedAt != nil {
		row.ResolutionMinutes = minutes(row.ResolvedAt.Sub(*row.AssignedAt))
	}
	return row
}

// Rows analyzes every ticket that has an assignee, in input order.
func Rows(tickets []models.Ticket) []Row {
	out := make([]Row, 0, len(tickets))
	for _, t := range tickets {
		if strings.TrimSpace(t.AssignedTo.Email) == "" {
			continue
		}
		out = append(out, Analyze(t))
	}
	return out
}

// Compute aggregates tickets. Unassigned tickets are ignored entirely; an
// assigned ticket missing a timestamp still counts toward Count and
// ResolutionRate but not toward the matching average.
func Compute(tickets []models.Ticket) Summary {
	return Summarize(Rows(tickets))
}

// Summarize aggregates precomputed rows.
func Summarize(rows []Row) Summary {
	var s Summary
	var respSum, resSum float64
	var respN, resN int
	for _, r := range rows {
		s.Count++
		if r.ResolvedAt != nil {
			s.Resolved++
		}
		if r.ResponseMinutes != nil {
			respSum += *r.ResponseMinutes
			respN++
		}
		if r.ResolutionMinutes != nil {
			resSum += *r.ResolutionMinutes
			resN++
		}
	}
	if respN > 0 {
		s.AvgResponseMinutes = ptr(respSum / float64(respN))
	}
	if resN > 0 {
		s.AvgResolutionMinutes = ptr(resSum / float64(resN))
	}
	if s.Count > 0 {
		s.ResolutionRate = float64(s.Resolved) / float64(s.Count) * 100
	}
	return s
}

func minutes(d time.Duration) *float64 {
	return ptr(d.Minutes())
}

func ptr(f float64) *float64 { return &f }
