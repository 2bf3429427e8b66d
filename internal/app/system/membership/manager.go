// Package membership keeps projects, user profiles and tickets consistent.
//
// Profiles and projects reference each other (profile.projects/project and
// project.members) and tickets carry the project name. Every operation here
// validates first, then runs its writes as an ordered saga. A failure part
// way leaves the completed writes in place and returns a *PartialFailure;
// the reconcile worker repairs the drift.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/dalemusser/supportdesk/internal/app/system/saga"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Toucher asks live guards of a uid to re-resolve its role.
type Toucher interface {
	Touch(uid string)
}

// Deps are the collaborators of a Manager. Audit, Events and Sessions may be nil.
type Deps struct {
	Profiles store.Profiles
	Projects store.Projects
	Tickets  store.Tickets
	Blocked  store.BlockedEmails

	Audit    *auditlog.Logger
	Events   events.Publisher
	Sessions Toucher
	Logger   *zap.Logger
}

// Manager performs project and member changes.
type Manager struct {
	profiles store.Profiles
	projects store.Projects
	tickets  store.Tickets
	blocked  store.BlockedEmails

	audit    *auditlog.Logger
	events   events.Publisher
	sessions Toucher
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Manager.
func New(d Deps) *Manager {
	m := &Manager{
		profiles: d.Profiles,
		projects: d.Projects,
		tickets:  d.Tickets,
		blocked:  d.Blocked,
		audit:    d.Audit,
		events:   d.Events,
		sessions: d.Sessions,
		log:      d.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if m.events == nil {
		m.events = events.Nop{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// run executes s and converts a failure into a *PartialFailure.
func (m *Manager) run(ctx context.Context, s *saga.Saga) error {
	err := s.Execute(ctx)
	if err == nil {
		return nil
	}
	var f *saga.Failure
	if !errors.As(err, &f) {
		return err
	}
	m.log.Error("membership write sequence failed",
		zap.String("op", f.Op),
		zap.String("step", f.Step),
		zap.Strings("completed", f.Completed),
		zap.Error(f.Err))
	return &PartialFailure{Failure: f}
}

func (m *Manager) publish(ctx context.Context, typ, subject, actor string, data map[string]string) {
	e := events.Event{Type: typ, Subject: subject, Actor: actor, At: m.now(), Data: data}
	if err := m.events.Publish(ctx, e); err != nil {
		m.log.Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}

func (m *Manager) touch(uids ...string) {
	if m.sessions == nil {
		return
	}
	for _, uid := range uids {
		if uid != "" {
			m.sessions.Touch(uid)
		}
	}
}

func (m *Manager) getProject(ctx context.Context, id string) (models.Project, error) {
	p, err := m.projects.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return p, ErrProjectNotFound
	}
	if err != nil {
		return p, fmt.Errorf("%w: load project: %v", ErrPersistence, err)
	}
	return p, nil
}

// findProfile loads the profile behind a member. Members added before the
// account existed carry a temporary id; when nothing is stored under it, the
// profile is looked up by email among non-temporary keys.
func (m *Manager) findProfile(ctx context.Context, uid, email string) (models.UserProfile, bool, error) {
	p, err := m.profiles.GetByID(ctx, uid)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return p, false, fmt.Errorf("%w: load profile: %v", ErrPersistence, err)
	}
	if !models.IsTemporaryID(uid) || email == "" {
		return models.UserProfile{}, false, nil
	}
	matches, err := m.profiles.FindByEmail(ctx, email)
	if err != nil {
		return models.UserProfile{}, false, fmt.Errorf("%w: find profile: %v", ErrPersistence, err)
	}
	for _, c := range matches {
		if !models.IsTemporaryID(c.ID) {
			return c, true, nil
		}
	}
	return models.UserProfile{}, false, nil
}

// checkRoleConflict fails when email is already held by a profile, other
// than those in exclude, with a different role or user type.
func (m *Manager) checkRoleConflict(ctx context.Context, email string, role models.Role, ut models.UserType, exclude ...string) error {
	existing, err := m.profiles.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: find profile: %v", ErrPersistence, err)
	}
outer:
	for _, p := range existing {
		for _, id := range exclude {
			if p.ID == id {
				continue outer
			}
		}
		if p.Role != role || p.UserType != ut {
			return ErrRoleConflict
		}
	}
	return nil
}

func (m *Manager) checkBlocked(ctx context.Context, email string) error {
	blocked, err := m.blocked.IsBlocked(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: check block list: %v", ErrPersistence, err)
	}
	if blocked {
		return ErrEmailBlocked
	}
	return nil
}

func addUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func removeAll(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// unlink drops one project from a profile's id and name lists. A client left
// with no project gets a nil name list.
func unlink(p *models.UserProfile, projectID, projectName string) {
	p.Projects = removeAll(p.Projects, projectID)
	p.Project = removeAll(p.Project, projectName)
	if len(p.Projects) == 0 && p.Role.IsClient() {
		p.Project = nil
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Queries                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ListProjects returns every project ordered by name.
func (m *Manager) ListProjects(ctx context.Context) ([]models.Project, error) {
	return m.projects.List(ctx)
}

// GetProject returns one project.
func (m *Manager) GetProject(ctx context.Context, id string) (models.Project, error) {
	return m.getProject(ctx, id)
}

// WatchProjects streams project snapshots until ctx ends.
func (m *Manager) WatchProjects(ctx context.Context) (<-chan []models.Project, error) {
	return m.projects.Watch(ctx)
}

// ListBlocked returns the block list.
func (m *Manager) ListBlocked(ctx context.Context) ([]models.BlockedEmail, error) {
	return m.blocked.List(ctx)
}
