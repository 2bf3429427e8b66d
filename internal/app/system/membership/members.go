package membership

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/saga"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AddResult describes a new membership. Password is set only when a new
// profile was created for the email.
type AddResult struct {
	Member   models.Member
	Password string
	Created  bool
}

// AddMember adds email to a project with the role derived from userType and
// the role selection. The profile for email is created (pending, temporary
// id) or extended with the project, then the member snapshot is appended.
func (m *Manager) AddMember(ctx context.Context, actor, projectID, email, selection, userType string) (AddResult, error) {
	email = normalize.Email(email)
	if err := ValidateEmail(email); err != nil {
		return AddResult{}, err
	}
	ut, ok := models.ParseUserType(userType)
	if !ok {
		return AddResult{}, ErrInvalidUserType
	}
	role, err := CanonicalRole(ut, selection)
	if err != nil {
		return AddResult{}, err
	}
	p, err := m.getProject(ctx, projectID)
	if err != nil {
		return AddResult{}, err
	}
	if p.HasEmail(email) {
		return AddResult{}, ErrAlreadyMember
	}
	if err := m.checkBlocked(ctx, email); err != nil {
		return AddResult{}, err
	}
	if err := m.checkRoleConflict(ctx, email, role, ut); err != nil {
		return AddResult{}, err
	}

	existing, err := m.profiles.FindByEmail(ctx, email)
	if err != nil {
		return AddResult{}, fmt.Errorf("%w: find profile: %v", ErrPersistence, err)
	}
	now := m.now()
	var res AddResult
	var prof models.UserProfile
	switch {
	case len(existing) > 0:
		prof = pickProfile(existing)
		prof.UpdatedAt = &now
		prof.UpdatedBy = actor
	default:
		res.Password = DerivePassword(email)
		hash, err := bcrypt.GenerateFromPassword([]byte(res.Password), bcrypt.DefaultCost)
		if err != nil {
			return AddResult{}, fmt.Errorf("hash password: %w", err)
		}
		res.Created = true
		prof = models.UserProfile{
			ID:           models.TempIDPrefix + uuid.NewString(),
			Email:        email,
			Role:         role,
			UserType:     ut,
			Status:       status.Pending,
			PasswordHash: string(hash),
			CreatedAt:    now,
			CreatedBy:    actor,
		}
	}
	prof.Projects = addUnique(prof.Projects, p.ID)
	prof.Project = addUnique(prof.Project, p.Name)

	res.Member = models.Member{
		Email:    email,
		Role:     role,
		UID:      prof.ID,
		UserType: ut,
		Status:   prof.Status,
	}

	s := saga.New("add member").
		Add("upsert profile", func(ctx context.Context) error {
			return m.profiles.Upsert(ctx, prof)
		}).
		Add("append member", func(ctx context.Context) error {
			return m.projects.PushMember(ctx, p.ID, res.Member)
		})
	if err := m.run(ctx, s); err != nil {
		return AddResult{}, err
	}

	m.audit.MemberAdded(ctx, actor, p.ID, prof.ID, email, string(role))
	m.publish(ctx, events.MemberAdded, prof.ID, actor, map[string]string{
		"project_id": p.ID,
		"email":      email,
		"role":       string(role),
	})
	m.touch(prof.ID)
	return res, nil
}

// pickProfile prefers a real account over a temporary one.
func pickProfile(ps []models.UserProfile) models.UserProfile {
	for _, p := range ps {
		if !models.IsTemporaryID(p.ID) {
			return p
		}
	}
	return ps[0]
}

// EditResult reports an applied member edit.
type EditResult struct {
	Member   models.Member
	Projects int // projects whose snapshot was rewritten
}

// EditMember changes a member's email, role or user type everywhere: in every
// project listing the same uid and on the profile.
func (m *Manager) EditMember(ctx context.Context, actor, projectID, uid, email, selection, userType string) (EditResult, error) {
	p, err := m.getProject(ctx, projectID)
	if err != nil {
		return EditResult{}, err
	}
	cur, ok := p.MemberByUID(uid)
	if !ok {
		return EditResult{}, ErrMemberNotFound
	}

	email = normalize.Email(email)
	if err := ValidateEmail(email); err != nil {
		return EditResult{}, err
	}
	ut, ok := models.ParseUserType(userType)
	if !ok {
		return EditResult{}, ErrInvalidUserType
	}
	role, err := CanonicalRole(ut, selection)
	if err != nil {
		return EditResult{}, err
	}

	var changed []string
	if email != normalize.Email(cur.Email) {
		changed = append(changed, "email")
	}
	if role != cur.Role {
		changed = append(changed, "role")
	}
	if ut != cur.UserType {
		changed = append(changed, "user_type")
	}
	if len(changed) == 0 {
		return EditResult{Member: cur}, ErrNoChanges
	}

	prof, found, err := m.findProfile(ctx, uid, cur.Email)
	if err != nil {
		return EditResult{}, err
	}
	if email != normalize.Email(cur.Email) {
		if err := m.checkBlocked(ctx, email); err != nil {
			return EditResult{}, err
		}
	}
	exclude := []string{uid}
	if found {
		exclude = append(exclude, prof.ID)
	}
	if err := m.checkRoleConflict(ctx, email, role, ut, exclude...); err != nil {
		return EditResult{}, err
	}

	containing, err := m.projects.ListByMemberUID(ctx, uid)
	if err != nil {
		return EditResult{}, fmt.Errorf("%w: list projects: %v", ErrPersistence, err)
	}
	if email != normalize.Email(cur.Email) {
		for _, cp := range containing {
			if cp.HasEmail(email) {
				return EditResult{}, ErrAlreadyMember
			}
		}
	}

	updated := models.Member{Email: email, Role: role, UID: uid, UserType: ut, Status: cur.Status}
	s := saga.New("edit member")
	for _, cp := range containing {
		snap := updated
		if old, ok := cp.MemberByUID(uid); ok {
			snap.Status = old.Status
		}
		s.Add("update member in "+cp.Name, func(ctx context.Context) error {
			return m.projects.UpdateMember(ctx, cp.ID, uid, snap)
		})
	}
	if found {
		s.Add("update profile", func(ctx context.Context) error {
			now := m.now()
			prof.Email = email
			prof.Role = role
			prof.UserType = ut
			prof.UpdatedAt = &now
			prof.UpdatedBy = actor
			return m.profiles.Upsert(ctx, prof)
		})
	} else {
		m.log.Warn("edited member has no profile; updating snapshots only")
	}
	if err := m.run(ctx, s); err != nil {
		return EditResult{}, err
	}

	m.audit.MemberUpdated(ctx, actor, p.ID, uid, strings.Join(changed, ","), len(containing))
	m.publish(ctx, events.MemberUpdated, uid, actor, map[string]string{
		"project_id": p.ID,
		"fields":     strings.Join(changed, ","),
	})
	m.touch(uid)
	if found && prof.ID != uid {
		m.touch(prof.ID)
	}
	return EditResult{Member: updated, Projects: len(containing)}, nil
}

// RemoveResult reports whether the profile went with the member.
type RemoveResult struct {
	ProfileDeleted bool
}

// RemoveMember drops the member snapshot from the project. When the email no
// longer appears in any project its profiles are deleted; otherwise the
// project is unlinked from the profile. Tickets are not touched.
func (m *Manager) RemoveMember(ctx context.Context, actor, projectID, uid string) (RemoveResult, error) {
	p, err := m.getProject(ctx, projectID)
	if err != nil {
		return RemoveResult{}, err
	}
	mem, ok := p.MemberByUID(uid)
	if !ok {
		return RemoveResult{}, ErrMemberNotFound
	}

	var res RemoveResult
	var deleted int64
	s := saga.New("remove member").
		Add("pull member", func(ctx context.Context) error {
			return m.projects.PullMember(ctx, p.ID, uid)
		}).
		Add("clean up profile", func(ctx context.Context) error {
			all, err := m.projects.List(ctx)
			if err != nil {
				return err
			}
			for _, other := range all {
				if other.HasEmail(mem.Email) {
					prof, ok, err := m.findProfile(ctx, uid, mem.Email)
					if err != nil || !ok {
						return err
					}
					unlink(&prof, p.ID, p.Name)
					now := m.now()
					prof.UpdatedAt = &now
					prof.UpdatedBy = actor
					return m.profiles.Upsert(ctx, prof)
				}
			}
			deleted, err = m.profiles.DeleteByEmail(ctx, mem.Email)
			res.ProfileDeleted = deleted > 0
			return err
		})
	if err := m.run(ctx, s); err != nil {
		return res, err
	}

	m.audit.MemberRemoved(ctx, actor, p.ID, uid, mem.Email)
	if res.ProfileDeleted {
		m.audit.ProfileDeleted(ctx, actor, mem.Email, deleted)
	}
	m.publish(ctx, events.MemberRemoved, uid, actor, map[string]string{
		"project_id":      p.ID,
		"email":           mem.Email,
		"profile_deleted": fmt.Sprint(res.ProfileDeleted),
	})
	m.touch(uid)
	return res, nil
}

// Activate marks a pending profile active and refreshes its member snapshots.
func (m *Manager) Activate(ctx context.Context, prof models.UserProfile) error {
	if prof.Status != status.Pending {
		return nil
	}
	containing, err := m.projects.ListByMemberUID(ctx, prof.ID)
	if err != nil {
		return fmt.Errorf("%w: list projects: %v", ErrPersistence, err)
	}
	now := m.now()
	prof.Status = status.Active
	prof.UpdatedAt = &now

	s := saga.New("activate profile").Add("update profile", func(ctx context.Context) error {
		return m.profiles.Upsert(ctx, prof)
	})
	for _, cp := range containing {
		mem, _ := cp.MemberByUID(prof.ID)
		mem.Status = status.Active
		s.Add("update member in "+cp.Name, func(ctx context.Context) error {
			return m.projects.UpdateMember(ctx, cp.ID, prof.ID, mem)
		})
	}
	if err := m.run(ctx, s); err != nil {
		return err
	}
	m.audit.AccountActivated(ctx, prof.ID, prof.Email)
	return nil
}
