// Package store defines the persistence contracts shared by the MongoDB
// stores and the in-memory backend.
package store

import (
	"context"
	"errors"

	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// Profiles persists UserProfile documents ("users").
type Profiles interface {
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
	FindByEmail(ctx context.Context, email string) ([]models.UserProfile, error)
	List(ctx context.Context) ([]models.UserProfile, error)
	// Upsert replaces the document with p.ID, inserting it when absent.
	Upsert(ctx context.Context, p models.UserProfile) error
	Delete(ctx context.Context, id string) error
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	// RenameProject rewrites every entry equal to oldName in the project
	// name lists.
	RenameProject(ctx context.Context, oldName, newName string) (int64, error)
}

// Projects persists Project documents.
type Projects interface {
	List(ctx context.Context) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (models.Project, error)
	Create(ctx context.Context, p models.Project) (models.Project, error)
	ExistsByNameCI(ctx context.Context, nameCI string) (bool, error)
	NameExistsForOther(ctx context.Context, nameCI, excludeID string) (bool, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	PushMember(ctx context.Context, projectID string, m models.Member) error
	// UpdateMember replaces the member with the given uid.
	UpdateMember(ctx context.Context, projectID, uid string, m models.Member) error
	PullMember(ctx context.Context, projectID, uid string) error
	ListByMemberUID(ctx context.Context, uid string) ([]models.Project, error)
	// Watch streams a full snapshot on subscribe and after every change
	// until ctx ends.
	Watch(ctx context.Context) (<-chan []models.Project, error)
}

// TicketFilter narrows ticket listings. Zero fields do not filter.
type TicketFilter struct {
	Projects      []string // project names
	AssigneeEmail string
	CreatedBy     string
	Status        string
}

// TicketUpdate carries the mutable parts of a ticket. Nil fields are kept.
type TicketUpdate struct {
	Status     *string
	AssignedTo *models.Assignee
	Comment    *models.Comment
}

// Tickets persists Ticket documents.
type Tickets interface {
	Create(ctx context.Context, t models.Ticket) (models.Ticket, error)
	GetByID(ctx context.Context, id string) (models.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]models.Ticket, error)
	Update(ctx context.Context, id string, u TicketUpdate) (models.Ticket, error)
	RenameProject(ctx context.Context, oldName, newName string) (int64, error)
}

// BlockedEmails persists the email block list.
type BlockedEmails interface {
	IsBlocked(ctx context.Context, email string) (bool, error)
	Block(ctx context.Context, b models.BlockedEmail) error
	Unblock(ctx context.Context, email string) error
	List(ctx context.Context) ([]models.BlockedEmail, error)
}

// FormConfigs persists the ticket form singleton.
type FormConfigs interface {
	Get(ctx context.Context) (models.FormConfig, error)
	Save(ctx context.Context, cfg models.FormConfig) error
}

// AuditEvents persists audit records.
type AuditEvents interface {
	Log(ctx context.Context, e audit.Event) error
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Set bundles one backend's stores.
type Set struct {
	Profiles    Profiles
	Projects    Projects
	Tickets     Tickets
	Blocked     BlockedEmails
	FormConfigs FormConfigs
	Audit       AuditEvents
	Health      Pinger
}
