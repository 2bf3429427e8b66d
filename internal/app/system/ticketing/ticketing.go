// Package ticketing creates tickets and records their history.
//
// Assignment and resolution are written as comments with fixed wording
// ("Ticket assigned to …", "Resolution updated: …") because the KPI
// aggregator derives response and resolution times from them.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/policy/ticketpolicy"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/dalemusser/supportdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.uber.org/zap"
)

var (
	ErrSubjectRequired  = errors.New("subject is required")
	ErrProjectRequired  = errors.New("project is required")
	ErrUnknownProject   = errors.New("you are not a member of this project")
	ErrInvalidOption    = errors.New("module, category or sub-category is not offered by the ticket form")
	ErrEmptyComment     = errors.New("comment is empty")
	ErrInvalidStatus    = errors.New("status must be Open, In Progress, Resolved or Closed")
	ErrInvalidAssignee  = errors.New("tickets can only be assigned to employees")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrStatusUnchanged  = errors.New("ticket already has this status")
	ErrAlreadyAssigned  = errors.New("ticket is already assigned to this employee")
)

// Statuses lists the valid ticket statuses in workflow order.
var Statuses = []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed}

// ParseStatus matches s case-insensitively against Statuses.
func ParseStatus(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(st, s) {
			return st, true
		}
	}
	return "", false
}

// Deps are the collaborators of a Service. Audit and Events may be nil.
type Deps struct {
	Tickets  store.Tickets
	Profiles store.Profiles
	Projects store.Projects
	Forms    store.FormConfigs
	Audit    *auditlog.Logger
	Events   events.Publisher
	Logger   *zap.Logger
}

// Service performs ticket writes.
type Service struct {
	tickets  store.Tickets
	profiles store.Profiles
	projects store.Projects
	forms    store.FormConfigs
	audit    *auditlog.Logger
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

// New builds a Service.
func New(d Deps) *Service {
	s := &Service{
		tickets:  d.Tickets,
		profiles: d.Profiles,
		projects: d.Projects,
		forms:    d.Forms,
		audit:    d.Audit,
		events:   d.Events,
		log:      d.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// NewTicket is the input of Create.
type NewTicket struct {
	Subject     string
	Description string
	Project     string
	Module      string
	Category    string
	SubCategory string
}

// Get loads a ticket.
func (s *Service) Get(ctx context.Context, id string) (models.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return t, ErrTicketNotFound
	}
	return t, err
}

// ProjectsFor returns the project names c may file tickets against.
func (s *Service) ProjectsFor(ctx context.Context, c ticketpolicy.Caller) ([]string, error) {
	if c.Role == models.RoleAdmin {
		ps, err := s.projects.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		names := make([]string, 0, len(ps))
		for _, p := range ps {
			names = append(names, p.Name)
		}
		return names, nil
	}
	prof, err := s.profiles.GetByID(ctx, c.UID)
	if errors.Is(err, store.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return append([]string{}, prof.Project...), nil
}

// FormConfig returns the ticket form, or an empty one when none was saved.
func (s *Service) FormConfig(ctx context.Context) (models.FormConfig, error) {
	cfg, err := s.forms.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.FormConfig{ID: models.FormConfigID}, nil
	}
	return cfg, err
}

// Create files a new Open ticket on behalf of c.
func (s *Service) Create(ctx context.Context, c ticketpolicy.Caller, in NewTicket) (models.Ticket, error) {
	in.Subject = normalize.Name(htmlsanitize.PlainText(in.Subject))
	in.Project = normalize.Name(in.Project)
	if in.Subject == "" {
		return models.Ticket{}, ErrSubjectRequired
	}
	if in.Project == "" {
		return models.Ticket{}, ErrProjectRequired
	}

	allowed, err := s.ProjectsFor(ctx, c)
	if err != nil {
		return models.Ticket{}, err
	}
	if !contains(allowed, in.Project) {
		return models.Ticket{}, ErrUnknownProject
	}

	cfg, err := s.FormConfig(ctx)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("load form config: %w", err)
	}
	if !optionPathValid(cfg.Modules, in.Module, in.Category, in.SubCategory) {
		return models.Ticket{}, ErrInvalidOption
	}

	now := s.now()
	t, err := s.tickets.Create(ctx, models.Ticket{
		Subject:     in.Subject,
		Description: htmlsanitize.Sanitize(in.Description),
		Project:     in.Project,
		Module:      in.Module,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		Status:      models.TicketOpen,
		CreatedBy:   c.Email,
		Comments: []models.Comment{{
			Message:    "Ticket created",
			AuthorRole: models.AuthorSystem,
			Author:     c.Email,
			Timestamp:  now,
		}},
		Created:     now,
		LastUpdated: now,
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}

	s.log.Info("ticket created",
		zap.String("ticket_id", t.ID),
		zap.Int64("number", t.Number),
		zap.String("project", t.Project),
		zap.String("created_by", t.CreatedBy))
	s.audit.TicketCreated(ctx, c.UID, t.ID, t.Project)
	s.publish(ctx, events.TicketCreated, t.ID, c.UID, map[string]string{"project": t.Project})
	return t, nil
}

// Comment appends a user comment.
func (s *Service) Comment(ctx context.Context, c ticketpolicy.Caller, id, message string) (models.Ticket, error) {
	message = strings.TrimSpace(htmlsanitize.PlainText(message))
	if message == "" {
		return models.Ticket{}, ErrEmptyComment
	}
	t, err := s.update(ctx, id, store.TicketUpdate{Comment: &models.Comment{
		Message:    message,
		AuthorRole: models.AuthorUser,
		Author:     c.Email,
		Timestamp:  s.now(),
	}})
	if err != nil {
		return t, err
	}
	s.publish(ctx, events.TicketUpdated, t.ID, c.UID, map[string]string{"change": "comment"})
	return t, nil
}

// SetStatus moves a ticket to status. Resolving records note as the
// resolution.
func (s *Service) SetStatus(ctx context.Context, c ticketpolicy.Caller, id, status, note string) (models.Ticket, error) {
	st, ok := ParseStatus(status)
	if !ok {
		return models.Ticket{}, ErrInvalidStatus
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	if cur.Status == st {
		return cur, ErrStatusUnchanged
	}

	note = strings.TrimSpace(htmlsanitize.PlainText(note))
	comment := models.Comment{
		Message:    fmt.Sprintf("Status changed from %s to %s", cur.Status, st),
		AuthorRole: models.AuthorUser,
		Author:     c.Email,
		Timestamp:  s.now(),
	}
	if st == models.TicketResolved {
		if note == "" {
			note = "resolved"
		}
		comment.Message = "Resolution updated: " + note
		comment.AuthorRole = models.AuthorResolver
	} else if note != "" {
		comment.Message += ": " + note
	}

	t, err := s.update(ctx, id, store.TicketUpdate{Status: &st, Comment: &comment})
	if err != nil {
		return t, err
	}
	s.log.Info("ticket status changed",
		zap.String("ticket_id", t.ID),
		zap.String("from", cur.Status),
		zap.String("to", st),
		zap.String("by", c.Email))
	if st == models.TicketResolved {
		s.audit.TicketResolved(ctx, c.UID, t.ID)
	}
	s.publish(ctx, events.TicketUpdated, t.ID, c.UID, map[string]string{"status": st})
	return t, nil
}

// Assign hands the ticket to the employee or project manager with the
// given email. Disabled accounts are refused. An Open ticket moves to In Progress.
func (s *Service) Assign(ctx context.Context, c ticketpolicy.Caller, id, email string) (models.Ticket, error) {
	email = normalize.Email(email)
	cur, err := s.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	if strings.EqualFold(cur.AssignedTo.Email, email) {
		return cur, ErrAlreadyAssigned
	}
	assignee, err := s.assignee(ctx, email)
	if err != nil {
		return models.Ticket{}, err
	}

	upd := store.TicketUpdate{
		AssignedTo: &assignee,
		Comment: &models.Comment{
			Message:    "Ticket assigned to " + assignee.Email,
			AuthorRole: models.AuthorSystem,
			Author:     c.Email,
			Timestamp:  s.now(),
		},
	}
	if cur.Status == models.TicketOpen {
		st := models.TicketInProgress
		upd.Status = &st
	}
	t, err := s.update(ctx, id, upd)
	if err != nil {
		return t, err
	}
	s.log.Info("ticket assigned",
		zap.String("ticket_id", t.ID),
		zap.String("assignee", assignee.Email),
		zap.String("by", c.Email))
	s.audit.TicketAssigned(ctx, c.UID, t.ID, assignee.Email)
	s.publish(ctx, events.TicketUpdated, t.ID, c.UID, map[string]string{"assignee": assignee.Email})
	return t, nil
}

// Assignees lists the active employees and project managers of project.
func (s *Service) Assignees(ctx context.Context, project string) ([]models.Member, error) {
	ps, err := s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var out []models.Member
	seen := map[string]bool{}
	for _, p := range ps {
		if p.Name != project {
			continue
		}
		for _, m := range p.Members {
			if m.UserType == models.UserTypeEmployee && !seen[m.Email] {
				seen[m.Email] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (s *Service) assignee(ctx context.Context, email string) (models.Assignee, error) {
	profs, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return models.Assignee{}, fmt.Errorf("find assignee: %w", err)
	}
	for _, p := range profs {
		if p.UserType == models.UserTypeEmployee && p.Status != status.Disabled {
			return models.Assignee{Email: p.Email, Name: normalize.LocalPart(p.Email)}, nil
		}
	}
	return models.Assignee{}, ErrInvalidAssignee
}

func (s *Service) update(ctx context.Context, id string, u store.TicketUpdate) (models.Ticket, error) {
	t, err := s.tickets.Update(ctx, id, u)
	if errors.Is(err, store.ErrNotFound) {
		return t, ErrTicketNotFound
	}
	if err != nil {
		return t, fmt.Errorf("update ticket: %w", err)
	}
	return t, nil
}

func (s *Service) publish(ctx context.Context, typ, subject, actor string, data map[string]string) {
	err := s.events.Publish(ctx, events.Event{Type: typ, Subject: subject, Actor: actor, At: s.now(), Data: data})
	if err != nil {
		s.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}

// optionPathValid checks module → category → sub-category against the
// form tree. Empty values end the path; a tree without modules accepts
// anything.
func optionPathValid(tree []models.FormOption, path ...string) bool {
	if len(tree) == 0 {
		return true
	}
	for i, name := range path {
		if name == "" {
			for _, rest := range path[i:] {
				if rest != "" {
					return false
				}
			}
			return true
		}
		var next []models.FormOption
		found := false
		for _, o := range tree {
			if o.Name == name {
				next, found = o.Children, true
				break
			}
		}
		if !found {
			return false
		}
		if len(next) == 0 {
			for _, rest := range path[i+1:] {
				if rest != "" {
					return false
				}
			}
			return true
		}
		tree = next
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
