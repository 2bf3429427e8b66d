package membership

import (
	"context"
	"fmt"
	"slices"

	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.uber.org/zap"
)

// ReconcileReport summarizes one repair pass.
type ReconcileReport struct {
	Projects int
	Profiles int
	Repaired int // profiles rewritten
}

// Reconcile repairs drift between profile project lists and project member
// lists left by partial failures or concurrent edits. Project members are
// authoritative: a profile lists exactly the projects whose members include
// its email, and its name list follows the id list.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	projects, err := m.projects.List(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list projects: %w", err)
	}
	profiles, err := m.profiles.List(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("list profiles: %w", err)
	}
	rep := ReconcileReport{Projects: len(projects), Profiles: len(profiles)}

	byID := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	for _, prof := range profiles {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		want := expectedProjects(prof, projects, byID)
		names := make([]string, 0, len(want))
		for _, id := range want {
			names = append(names, byID[id].Name)
		}
		if len(want) == 0 && prof.Role.IsClient() {
			names = nil
		}
		if slices.Equal(want, prof.Projects) && slices.Equal(names, prof.Project) {
			continue
		}

		m.log.Info("reconcile: repairing profile projects",
			zap.String("uid", prof.ID),
			zap.Strings("before", prof.Projects),
			zap.Strings("after", want))
		prof.Projects = want
		prof.Project = names
		now := m.now()
		prof.UpdatedAt = &now
		if err := m.profiles.Upsert(ctx, prof); err != nil {
			return rep, fmt.Errorf("repair profile %s: %w", prof.ID, err)
		}
		rep.Repaired++
		m.touch(prof.ID)
	}
	return rep, nil
}

// expectedProjects keeps the profile's existing order for projects that still
// list it and appends any project that lists it but is missing.
func expectedProjects(prof models.UserProfile, projects []models.Project, byID map[string]models.Project) []string {
	lists := func(p models.Project) bool {
		if _, ok := p.MemberByUID(prof.ID); ok {
			return true
		}
		return p.HasEmail(prof.Email)
	}
	out := make([]string, 0, len(prof.Projects))
	for _, id := range prof.Projects {
		if p, ok := byID[id]; ok && lists(p) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, p := range projects {
		if lists(p) && !slices.Contains(out, p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}
