package events_test

import (
	"context"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/system/events"
)

func TestRecorder(t *testing.T) {
	rec := events.NewRecorder(2)
	ctx := context.Background()
	for _, typ := range []string{events.ProjectCreated, events.MemberAdded, events.MemberRemoved} {
		if err := rec.Publish(ctx, events.Event{Type: typ}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	got := rec.Drain()
	if len(got) != 2 || got[0].Type != events.ProjectCreated || got[1].Type != events.MemberAdded {
		t.Fatalf("Drain = %+v", got)
	}
	if len(rec.Drain()) != 0 {
		t.Fatal("second Drain should be empty")
	}
}

func TestNop(t *testing.T) {
	var p events.Publisher = events.Nop{}
	if err := p.Publish(context.Background(), events.Event{Type: events.TicketCreated}); err != nil {
		t.Fatalf("Nop.Publish: %v", err)
	}
}
