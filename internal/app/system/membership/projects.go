package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/dalemusser/supportdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/saga"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// CreateProject stores a project with no members. The name must be unique
// ignoring case and surrounding whitespace.
func (m *Manager) CreateProject(ctx context.Context, actor, name, description string) (models.Project, error) {
	name = normalize.Name(name)
	if name == "" {
		return models.Project{}, ErrNameRequired
	}
	exists, err := m.projects.ExistsByNameCI(ctx, normalize.NameCI(name))
	if err != nil {
		return models.Project{}, fmt.Errorf("%w: check name: %v", ErrPersistence, err)
	}
	if exists {
		return models.Project{}, ErrDuplicateName
	}

	var created models.Project
	s := saga.New("create project").Add("insert project", func(ctx context.Context) error {
		p, err := m.projects.Create(ctx, models.Project{
			Name:        name,
			Description: htmlsanitize.Sanitize(description),
			Members:     []models.Member{},
			CreatedAt:   m.now(),
		})
		created = p
		return err
	})
	if err := m.run(ctx, s); err != nil {
		// Lost a race with another create of the same name.
		if errors.Is(err, store.ErrDuplicate) {
			return models.Project{}, ErrDuplicateName
		}
		return models.Project{}, err
	}

	m.audit.ProjectCreated(ctx, actor, created.ID, created.Name)
	m.publish(ctx, events.ProjectCreated, created.ID, actor, map[string]string{"name": created.Name})
	return created, nil
}

// RenameResult counts the denormalized copies rewritten by a rename.
type RenameResult struct {
	Project  models.Project
	Profiles int64
	Tickets  int64
}

// RenameProject changes the project name, then rewrites the name on every
// profile and ticket that carried the old one.
func (m *Manager) RenameProject(ctx context.Context, actor, projectID, newName string) (RenameResult, error) {
	newName = normalize.Name(newName)
	if newName == "" {
		return RenameResult{}, ErrNameRequired
	}
	p, err := m.getProject(ctx, projectID)
	if err != nil {
		return RenameResult{}, err
	}
	if p.Name == newName {
		return RenameResult{Project: p}, ErrNoChanges
	}
	taken, err := m.projects.NameExistsForOther(ctx, normalize.NameCI(newName), p.ID)
	if err != nil {
		return RenameResult{}, fmt.Errorf("%w: check name: %v", ErrPersistence, err)
	}
	if taken {
		return RenameResult{}, ErrDuplicateName
	}

	oldName := p.Name
	var res RenameResult
	s := saga.New("rename project").
		Add("rename project", func(ctx context.Context) error {
			return m.projects.Rename(ctx, p.ID, newName)
		}).
		Add("rewrite profiles", func(ctx context.Context) error {
			n, err := m.profiles.RenameProject(ctx, oldName, newName)
			res.Profiles = n
			return err
		}).
		Add("rewrite tickets", func(ctx context.Context) error {
			n, err := m.tickets.RenameProject(ctx, oldName, newName)
			res.Tickets = n
			return err
		})
	if err := m.run(ctx, s); err != nil {
		var pf *PartialFailure
		if errors.As(err, &pf) && len(pf.Completed()) == 0 && errors.Is(err, store.ErrDuplicate) {
			return RenameResult{}, ErrDuplicateName
		}
		return res, err
	}

	p.Name = newName
	p.NameCI = normalize.NameCI(newName)
	res.Project = p
	m.audit.ProjectRenamed(ctx, actor, p.ID, oldName, newName, res.Profiles, res.Tickets)
	m.publish(ctx, events.ProjectRenamed, p.ID, actor, map[string]string{"old_name": oldName, "new_name": newName})
	return res, nil
}

// DeleteProject unlinks the project from each member's profile and then
// deletes it. Missing profiles are skipped. Tickets keep the project name.
func (m *Manager) DeleteProject(ctx context.Context, actor, projectID string) error {
	p, err := m.getProject(ctx, projectID)
	if err != nil {
		return err
	}

	s := saga.New("delete project")
	for _, mem := range p.Members {
		s.Add("unlink "+mem.Email, func(ctx context.Context) error {
			prof, ok, err := m.findProfile(ctx, mem.UID, mem.Email)
			if err != nil || !ok {
				return err
			}
			unlink(&prof, p.ID, p.Name)
			now := m.now()
			prof.UpdatedAt = &now
			prof.UpdatedBy = actor
			return m.profiles.Upsert(ctx, prof)
		})
	}
	s.Add("delete project", func(ctx context.Context) error {
		return m.projects.Delete(ctx, p.ID)
	})
	if err := m.run(ctx, s); err != nil {
		return err
	}

	m.audit.ProjectDeleted(ctx, actor, p.ID, p.Name, len(p.Members))
	m.publish(ctx, events.ProjectDeleted, p.ID, actor, map[string]string{"name": p.Name})
	for _, mem := range p.Members {
		m.touch(mem.UID)
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Block list                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// BlockEmail prevents email from being added as a member.
func (m *Manager) BlockEmail(ctx context.Context, actor, email string) error {
	email = normalize.Email(email)
	if email == "" {
		return ErrInvalidDomain
	}
	err := m.blocked.Block(ctx, models.BlockedEmail{Email: email, BlockedAt: m.now(), BlockedBy: actor})
	if err != nil {
		return fmt.Errorf("%w: block email: %v", ErrPersistence, err)
	}
	m.audit.EmailBlocked(ctx, actor, email)
	m.publish(ctx, events.EmailBlocked, email, actor, nil)
	return nil
}

// UnblockEmail removes email from the block list. Unknown emails are ignored.
func (m *Manager) UnblockEmail(ctx context.Context, actor, email string) error {
	email = normalize.Email(email)
	err := m.blocked.Unblock(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: unblock email: %v", ErrPersistence, err)
	}
	m.audit.EmailUnblocked(ctx, actor, email)
	m.publish(ctx, events.EmailUnblocked, email, actor, nil)
	return nil
}
