package dashboard

import (
	"testing"

	"github.com/dalemusser/supportdesk/internal/domain/models"
)

func TestCountStatuses(t *testing.T) {
	ts := []models.Ticket{
		{Status: models.TicketOpen},
		{Status: "open"},
		{Status: models.TicketInProgress},
		{Status: models.TicketResolved},
		{Status: "RESOLVED"},
		{Status: models.TicketClosed},
		{Status: "Parked"},
	}
	got := countStatuses(ts)
	want := StatusCounts{Total: 7, Open: 2, InProgress: 1, Resolved: 2, Closed: 1}
	if got != want {
		t.Errorf("countStatuses = %+v, want %+v", got, want)
	}
}

func TestRecent(t *testing.T) {
	ts := make([]models.Ticket, recentLimit+3)
	for i := range ts {
		ts[i].Number = int64(len(ts) - i)
	}
	got := recent(ts)
	if len(got) != recentLimit || got[0].Number != int64(len(ts)) {
		t.Errorf("recent kept %d, first %d", len(got), got[0].Number)
	}
	if len(recent(ts[:2])) != 2 {
		t.Error("short lists are kept whole")
	}
}
