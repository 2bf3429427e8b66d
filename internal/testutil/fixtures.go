package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// Fixtures provides helper methods for creating test data in any backend.
type Fixtures struct {
	set store.Set
	t   *testing.T
}

// NewFixtures creates a new Fixtures instance for the given store set.
func NewFixtures(t *testing.T, set store.Set) *Fixtures {
	t.Helper()
	return &Fixtures{set: set, t: t}
}

// Set returns the underlying stores for direct access in tests.
func (f *Fixtures) Set() store.Set {
	return f.set
}

// CreateProfile stores an active profile with the given key, email and role.
func (f *Fixtures) CreateProfile(ctx context.Context, uid, email string, role models.Role) models.UserProfile {
	f.t.Helper()
	return f.CreateProfileWithStatus(ctx, uid, email, role, status.Active)
}

// CreateProfileWithStatus stores a profile with an explicit status.
func (f *Fixtures) CreateProfileWithStatus(ctx context.Context, uid, email string, role models.Role, st string) models.UserProfile {
	f.t.Helper()

	ut, _ := role.Family()
	p := models.UserProfile{
		ID:        uid,
		Email:     email,
		Role:      role,
		UserType:  ut,
		Status:    st,
		Projects:  []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.set.Profiles.Upsert(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateProject stores an empty project.
func (f *Fixtures) CreateProject(ctx context.Context, name string) models.Project {
	f.t.Helper()

	p, err := f.set.Projects.Create(ctx, models.Project{Name: name, Description: "test project"})
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTicket stores a ticket in project, optionally assigned.
func (f *Fixtures) CreateTicket(ctx context.Context, project, subject, createdBy, assignee string) models.Ticket {
	f.t.Helper()

	t, err := f.set.Tickets.Create(ctx, models.Ticket{
		Subject:    subject,
		Project:    project,
		CreatedBy:  createdBy,
		AssignedTo: models.Assignee{Email: assignee},
	})
	if err != nil {
		f.t.Fatalf("failed to create test ticket: %v", err)
	}
	return t
}
