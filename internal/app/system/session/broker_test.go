package session_test

import (
	"sync"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
)

type recorder struct {
	mu     sync.Mutex
	states []session.State
}

func (r *recorder) fn(st session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recorder) all() []session.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.State(nil), r.states...)
}

func TestStatic_ReplaysOnce(t *testing.T) {
	rec := &recorder{}
	unsub := session.Static(session.SignedIn(session.Identity{UID: "u1"})).Subscribe(rec.fn)
	unsub()

	got := rec.all()
	if len(got) != 1 || !got[0].Authenticated || got[0].Identity.UID != "u1" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestBroker_ReplaysInitialState(t *testing.T) {
	b := session.NewBroker()
	rec := &recorder{}
	unsub := b.Source(session.Identity{UID: "u1", Email: "a@x.com"}).Subscribe(rec.fn)
	defer unsub()

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected immediate replay, got %d deliveries", len(got))
	}
	if !got[0].Authenticated || got[0].Identity.Email != "a@x.com" {
		t.Errorf("replayed state = %+v", got[0])
	}
}

func TestBroker_ReplaysLatestPublished(t *testing.T) {
	b := session.NewBroker()
	id := session.Identity{UID: "u1"}
	first := b.Source(id).Subscribe((&recorder{}).fn)
	defer first()
	b.SignOut(id)

	rec := &recorder{}
	unsub := b.Source(id).Subscribe(rec.fn)
	defer unsub()

	got := rec.all()
	if len(got) != 1 || got[0].Authenticated {
		t.Fatalf("expected signed-out replay, got %+v", got)
	}
}

func TestBroker_ForgetsSignedOutUIDs(t *testing.T) {
	b := session.NewBroker()
	id := session.Identity{UID: "u1"}

	// Nobody listening: the sign-out replaces the signed-in entry.
	b.SignIn(id)
	if _, ok := b.Latest("u1"); !ok {
		t.Fatal("sign-in not recorded")
	}
	b.SignOut(id)
	if _, ok := b.Latest("u1"); ok {
		t.Error("signed-out uid without subscribers is still recorded")
	}

	// Listening: kept until the last subscriber leaves.
	unsub := b.Source(id).Subscribe((&recorder{}).fn)
	b.SignOut(id)
	if st, ok := b.Latest("u1"); !ok || st.Authenticated {
		t.Fatalf("Latest = %+v, %v; want signed out", st, ok)
	}
	unsub()
	if _, ok := b.Latest("u1"); ok {
		t.Error("signed-out uid kept after its last subscriber left")
	}
}

func TestBroker_DeliversOnlyToSameUID(t *testing.T) {
	b := session.NewBroker()
	r1, r2 := &recorder{}, &recorder{}
	u1 := b.Source(session.Identity{UID: "u1"}).Subscribe(r1.fn)
	defer u1()
	u2 := b.Source(session.Identity{UID: "u2"}).Subscribe(r2.fn)
	defer u2()

	b.SignOut(session.Identity{UID: "u1"})

	if n := len(r1.all()); n != 2 {
		t.Errorf("u1 deliveries = %d, want 2", n)
	}
	if n := len(r2.all()); n != 1 {
		t.Errorf("u2 deliveries = %d, want 1", n)
	}
}

func TestBroker_NoDeliveryAfterUnsubscribe(t *testing.T) {
	b := session.NewBroker()
	id := session.Identity{UID: "u1"}
	rec := &recorder{}
	unsub := b.Source(id).Subscribe(rec.fn)
	unsub()
	unsub() // idempotent

	b.SignOut(id)
	b.Touch("u1")

	if n := len(rec.all()); n != 1 {
		t.Errorf("deliveries = %d, want only the initial replay", n)
	}
}

func TestBroker_TouchRedeliversCurrent(t *testing.T) {
	b := session.NewBroker()
	id := session.Identity{UID: "u1", Email: "a@x.com"}
	rec := &recorder{}
	unsub := b.Source(id).Subscribe(rec.fn)
	defer unsub()

	b.Touch("u1")

	got := rec.all()
	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(got))
	}
	if !got[1].Authenticated || got[1].Identity.Email != "a@x.com" {
		t.Errorf("touched state = %+v", got[1])
	}
	if _, ok := b.Latest("u1"); ok {
		t.Error("Touch should not record a published state")
	}
}
