package userstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	userstore "github.com/dalemusser/supportdesk/internal/app/store/users"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/supportdesk/internal/testutil"
)

func TestStore_UpsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := models.UserProfile{
		ID:        "u1",
		Email:     "User@Example.com",
		Role:      models.RoleClient,
		UserType:  models.UserTypeClient,
		Status:    "active",
		Projects:  []string{"p1"},
		Project:   []string{"Alpha"},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := s.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != "user@example.com" {
		t.Errorf("expected normalized email, got %q", got.Email)
	}

	byEmail, err := s.FindByEmail(ctx, "USER@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if len(byEmail) != 1 {
		t.Errorf("expected 1 profile by email, got %d", len(byEmail))
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestStore_RenameProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, p := range []models.UserProfile{
		{ID: "a", Email: "a@x.com", Project: []string{"Old", "Other"}},
		{ID: "b", Email: "b@x.com", Project: []string{"Other"}},
	} {
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	n, err := s.RenameProject(ctx, "Old", "New")
	if err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 modified profile, got %d", n)
	}
	a, _ := s.GetByID(ctx, "a")
	if a.Project[0] != "New" || a.Project[1] != "Other" {
		t.Errorf("unexpected project names %v", a.Project)
	}
}
