package ticketstore_test

import (
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/store"
	ticketstore "github.com/dalemusser/supportdesk/internal/app/store/tickets"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
)

func TestStore_CreateAssignsNumbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := ticketstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := s.Create(ctx, models.Ticket{Subject: "one", Project: "Alpha"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b, err := s.Create(ctx, models.Ticket{Subject: "two", Project: "Alpha"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Number != a.Number+1 {
		t.Errorf("expected sequential numbers, got %d then %d", a.Number, b.Number)
	}
	if a.Status != models.TicketOpen {
		t.Errorf("expected default status %q, got %q", models.TicketOpen, a.Status)
	}
}

func TestStore_UpdateAndRename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := ticketstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tk, _ := s.Create(ctx, models.Ticket{Subject: "x", Project: "Old"})
	_, _ = s.Create(ctx, models.Ticket{Subject: "y", Project: "Other"})

	status := models.TicketResolved
	got, err := s.Update(ctx, tk.ID, store.TicketUpdate{
		Status:  &status,
		Comment: &models.Comment{Message: "Resolution updated", AuthorRole: models.AuthorResolver},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Status != status || len(got.Comments) != 1 {
		t.Errorf("unexpected ticket after update: %+v", got)
	}

	n, err := s.RenameProject(ctx, "Old", "New")
	if err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 renamed ticket, got %d", n)
	}
	list, _ := s.List(ctx, store.TicketFilter{Projects: []string{"New"}})
	if len(list) != 1 || list[0].ID != tk.ID {
		t.Errorf("expected renamed ticket under New, got %+v", list)
	}
}
