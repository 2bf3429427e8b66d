package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"github.com/dalemusser/supportdesk/internal/testutil"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventProjectCreated,
		ActorID:   "admin-1",
		ProjectID: "p-1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.Query(ctx, audit.QueryFilter{ProjectID: "p-1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" || events[0].Timestamp.IsZero() {
		t.Error("expected ID and Timestamp to be set")
	}
}

func TestQueryFilter_Matches(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	e := audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, UserID: "u1", Timestamp: now}

	tests := []struct {
		name string
		f    audit.QueryFilter
		want bool
	}{
		{"empty filter", audit.QueryFilter{}, true},
		{"same user", audit.QueryFilter{UserID: "u1"}, true},
		{"other user", audit.QueryFilter{UserID: "u2"}, false},
		{"category", audit.QueryFilter{Category: audit.CategoryAdmin}, false},
		{"since before", audit.QueryFilter{Since: &earlier}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(e); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
