// internal/app/store/memstore/memstore.go
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

// Backend owns one memdb instance shared by all stores.
type Backend struct {
	db *memdb.MemDB

	mu        sync.Mutex
	ticketSeq int64
}

// New creates an empty backend.
func New() (*Backend, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memdb schema: %w", err)
	}
	return &Backend{db: db}, nil
}

// Set returns the stores backed by b.
func (b *Backend) Set() store.Set {
	return store.Set{
		Profiles:    &Profiles{b: b},
		Projects:    &Projects{b: b},
		Tickets:     &Tickets{b: b},
		Blocked:     &Blocked{b: b},
		FormConfigs: &FormConfigs{b: b},
		Audit:       &Audit{b: b},
		Health:      b,
	}
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

// write runs fn in a write transaction and commits when fn returns nil.
func (b *Backend) write(fn func(txn *memdb.Txn) error) error {
	txn := b.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func first[T any](txn *memdb.Txn, table, index string, args ...interface{}) (*T, error) {
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, store.ErrNotFound
	}
	return raw.(*T), nil
}

func all[T any](txn *memdb.Txn, table, index string, args ...interface{}) ([]*T, error) {
	it, err := txn.Get(table, index, args...)
	if err != nil {
		return nil, err
	}
	var out []*T
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*T))
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profiles                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type Profiles struct{ b *Backend }

func (s *Profiles) GetByID(_ context.Context, id string) (models.UserProfile, error) {
	p, err := first[models.UserProfile](s.b.db.Txn(false), tUsers, "id", id)
	if err != nil {
		return models.UserProfile{}, err
	}
	return *cloneProfile(*p), nil
}

func (s *Profiles) FindByEmail(_ context.Context, email string) ([]models.UserProfile, error) {
	rows, err := all[models.UserProfile](s.b.db.Txn(false), tUsers, "email", normalize.Email(email))
	if err != nil {
		return nil, err
	}
	out := make([]models.UserProfile, 0, len(rows))
	for _, p := range rows {
		out = append(out, *cloneProfile(*p))
	}
	return out, nil
}

func (s *Profiles) List(_ context.Context) ([]models.UserProfile, error) {
	rows, err := all[models.UserProfile](s.b.db.Txn(false), tUsers, "id")
	if err != nil {
		return nil, err
	}
	out := make([]models.UserProfile, 0, len(rows))
	for _, p := range rows {
		out = append(out, *cloneProfile(*p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Profiles) Upsert(_ context.Context, p models.UserProfile) error {
	p.Email = normalize.Email(p.Email)
	return s.b.write(func(txn *memdb.Txn) error {
		return txn.Insert(tUsers, cloneProfile(p))
	})
}

func (s *Profiles) Delete(_ context.Context, id string) error {
	return s.b.write(func(txn *memdb.Txn) error {
		p, err := first[models.UserProfile](txn, tUsers, "id", id)
		if err != nil {
			return err
		}
		return txn.Delete(tUsers, p)
	})
}

func (s *Profiles) DeleteByEmail(_ context.Context, email string) (int64, error) {
	var n int64
	err := s.b.write(func(txn *memdb.Txn) error {
		rows, err := all[models.UserProfile](txn, tUsers, "email", normalize.Email(email))
		if err != nil {
			return err
		}
		for _, p := range rows {
			if err := txn.Delete(tUsers, p); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *Profiles) RenameProject(_ context.Context, oldName, newName string) (int64, error) {
	var n int64
	err := s.b.write(func(txn *memdb.Txn) error {
		rows, err := all[models.UserProfile](txn, tUsers, "project", oldName)
		if err != nil {
			return err
		}
		for _, p := range rows {
			upd := cloneProfile(*p)
			for i, name := range upd.Project {
				if name == oldName {
					upd.Project[i] = newName
				}
			}
			if err := txn.Insert(tUsers, upd); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Projects                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type Projects struct{ b *Backend }

func sortProjects(ps []models.Project) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].NameCI < ps[j].NameCI })
}

func (s *Projects) snapshot(txn *memdb.Txn) ([]models.Project, memdb.ResultIterator, error) {
	it, err := txn.Get(tProjects, "id")
	if err != nil {
		return nil, nil, err
	}
	var out []models.Project
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *cloneProject(*raw.(*models.Project)))
	}
	sortProjects(out)
	return out, it, nil
}

func (s *Projects) List(_ context.Context) ([]models.Project, error) {
	out, _, err := s.snapshot(s.b.db.Txn(false))
	return out, err
}

func (s *Projects) GetByID(_ context.Context, id string) (models.Project, error) {
	p, err := first[models.Project](s.b.db.Txn(false), tProjects, "id", id)
	if err != nil {
		return models.Project{}, err
	}
	return *cloneProject(*p), nil
}

func nameTaken(txn *memdb.Txn, nameCI, excludeID string) (bool, error) {
	rows, err := all[models.Project](txn, tProjects, "name_ci", nameCI)
	if err != nil {
		return false, err
	}
	for _, p := range rows {
		if p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Projects) Create(_ context.Context, p models.Project) (models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.NameCI = normalize.NameCI(p.Name)
	if p.Members == nil {
		p.Members = []models.Member{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := s.b.write(func(txn *memdb.Txn) error {
		taken, err := nameTaken(txn, p.NameCI, "")
		if err != nil {
			return err
		}
		if taken {
			return store.ErrDuplicate
		}
		return txn.Insert(tProjects, cloneProject(p))
	})
	if err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Projects) ExistsByNameCI(_ context.Context, nameCI string) (bool, error) {
	return nameTaken(s.b.db.Txn(false), nameCI, "")
}

func (s *Projects) NameExistsForOther(_ context.Context, nameCI, excludeID string) (bool, error) {
	return nameTaken(s.b.db.Txn(false), nameCI, excludeID)
}

// modify loads project id, applies fn to a copy and stores it.
func (s *Projects) modify(id string, fn func(p *models.Project, txn *memdb.Txn) error) error {
	return s.b.write(func(txn *memdb.Txn) error {
		cur, err := first[models.Project](txn, tProjects, "id", id)
		if err != nil {
			return err
		}
		upd := cloneProject(*cur)
		if err := fn(upd, txn); err != nil {
			return err
		}
		return txn.Insert(tProjects, upd)
	})
}

func (s *Projects) Rename(_ context.Context, id, name string) error {
	return s.modify(id, func(p *models.Project, txn *memdb.Txn) error {
		nameCI := normalize.NameCI(name)
		taken, err := nameTaken(txn, nameCI, id)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrDuplicate
		}
		p.Name = name
		p.NameCI = nameCI
		return nil
	})
}

func (s *Projects) Delete(_ context.Context, id string) error {
	return s.b.write(func(txn *memdb.Txn) error {
		p, err := first[models.Project](txn, tProjects, "id", id)
		if err != nil {
			return err
		}
		return txn.Delete(tProjects, p)
	})
}

func (s *Projects) PushMember(_ context.Context, projectID string, m models.Member) error {
	return s.modify(projectID, func(p *models.Project, _ *memdb.Txn) error {
		p.Members = append(p.Members, m)
		return nil
	})
}

func (s *Projects) UpdateMember(_ context.Context, projectID, uid string, m models.Member) error {
	return s.modify(projectID, func(p *models.Project, _ *memdb.Txn) error {
		for i := range p.Members {
			if p.Members[i].UID == uid {
				p.Members[i] = m
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *Projects) PullMember(_ context.Context, projectID, uid string) error {
	return s.modify(projectID, func(p *models.Project, _ *memdb.Txn) error {
		kept := p.Members[:0]
		for _, m := range p.Members {
			if m.UID != uid {
				kept = append(kept, m)
			}
		}
		p.Members = kept
		return nil
	})
}

func (s *Projects) ListByMemberUID(ctx context.Context, uid string) ([]models.Project, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Project
	for _, p := range ps {
		if _, ok := p.MemberByUID(uid); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Watch sends a snapshot now and whenever the projects table changes.
func (s *Projects) Watch(ctx context.Context) (<-chan []models.Project, error) {
	snap, it, err := s.snapshot(s.b.db.Txn(false))
	if err != nil {
		return nil, err
	}
	out := make(chan []models.Project, 1)
	go func() {
		defer close(out)
		for {
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			ws := memdb.NewWatchSet()
			ws.Add(it.WatchCh())
			if err := ws.WatchCtx(ctx); err != nil {
				return
			}
			if snap, it, err = s.snapshot(s.b.db.Txn(false)); err != nil {
				return
			}
		}
	}()
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Tickets                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type Tickets struct{ b *Backend }

func (s *Tickets) Create(_ context.Context, t models.Ticket) (models.Ticket, error) {
	s.b.mu.Lock()
	s.b.ticketSeq++
	t.Number = s.b.ticketSeq
	s.b.mu.Unlock()

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = models.TicketOpen
	}
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	t.AssignedTo.Email = normalize.Email(t.AssignedTo.Email)
	t.CreatedBy = normalize.Email(t.CreatedBy)
	if t.Created.IsZero() {
		t.Created = now
	}
	if t.LastUpdated.IsZero() {
		t.LastUpdated = now
	}
	err := s.b.write(func(txn *memdb.Txn) error {
		return txn.Insert(tTickets, cloneTicket(t))
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Tickets) GetByID(_ context.Context, id string) (models.Ticket, error) {
	t, err := first[models.Ticket](s.b.db.Txn(false), tTickets, "id", id)
	if err != nil {
		return models.Ticket{}, err
	}
	return *cloneTicket(*t), nil
}

func ticketMatches(t *models.Ticket, f store.TicketFilter) bool {
	if f.Projects != nil {
		found := false
		for _, p := range f.Projects {
			if t.Project == p {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.AssigneeEmail != "" && t.AssignedTo.Email != normalize.Email(f.AssigneeEmail) {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != normalize.Email(f.CreatedBy) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func (s *Tickets) List(_ context.Context, f store.TicketFilter) ([]models.Ticket, error) {
	rows, err := all[models.Ticket](s.b.db.Txn(false), tTickets, "id")
	if err != nil {
		return nil, err
	}
	var out []models.Ticket
	for _, t := range rows {
		if ticketMatches(t, f) {
			out = append(out, *cloneTicket(*t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (s *Tickets) Update(_ context.Context, id string, u store.TicketUpdate) (models.Ticket, error) {
	var result models.Ticket
	err := s.b.write(func(txn *memdb.Txn) error {
		cur, err := first[models.Ticket](txn, tTickets, "id", id)
		if err != nil {
			return err
		}
		upd := cloneTicket(*cur)
		if u.Status != nil {
			upd.Status = *u.Status
		}
		if u.AssignedTo != nil {
			upd.AssignedTo = *u.AssignedTo
			upd.AssignedTo.Email = normalize.Email(upd.AssignedTo.Email)
		}
		if u.Comment != nil {
			upd.Comments = append(upd.Comments, *u.Comment)
		}
		upd.LastUpdated = time.Now().UTC()
		result = *cloneTicket(*upd)
		return txn.Insert(tTickets, upd)
	})
	return result, err
}

func (s *Tickets) RenameProject(_ context.Context, oldName, newName string) (int64, error) {
	var n int64
	err := s.b.write(func(txn *memdb.Txn) error {
		rows, err := all[models.Ticket](txn, tTickets, "project", oldName)
		if err != nil {
			return err
		}
		for _, t := range rows {
			upd := cloneTicket(*t)
			upd.Project = newName
			if err := txn.Insert(tTickets, upd); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Blocked emails, form config, audit                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type Blocked struct{ b *Backend }

func (s *Blocked) IsBlocked(_ context.Context, email string) (bool, error) {
	_, err := first[models.BlockedEmail](s.b.db.Txn(false), tBlocked, "id", normalize.Email(email))
	if err == store.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *Blocked) Block(_ context.Context, e models.BlockedEmail) error {
	e.Email = normalize.Email(e.Email)
	if e.BlockedAt.IsZero() {
		e.BlockedAt = time.Now().UTC()
	}
	return s.b.write(func(txn *memdb.Txn) error {
		return txn.Insert(tBlocked, &e)
	})
}

func (s *Blocked) Unblock(_ context.Context, email string) error {
	return s.b.write(func(txn *memdb.Txn) error {
		e, err := first[models.BlockedEmail](txn, tBlocked, "id", normalize.Email(email))
		if err != nil {
			return err
		}
		return txn.Delete(tBlocked, e)
	})
}

func (s *Blocked) List(_ context.Context) ([]models.BlockedEmail, error) {
	rows, err := all[models.BlockedEmail](s.b.db.Txn(false), tBlocked, "id")
	if err != nil {
		return nil, err
	}
	out := make([]models.BlockedEmail, 0, len(rows))
	for _, e := range rows {
		out = append(out, *e)
	}
	return out, nil
}

type FormConfigs struct{ b *Backend }

func (s *FormConfigs) Get(_ context.Context) (models.FormConfig, error) {
	c, err := first[models.FormConfig](s.b.db.Txn(false), tConfig, "id", models.FormConfigID)
	if err != nil {
		return models.FormConfig{}, err
	}
	return *cloneFormConfig(*c), nil
}

func (s *FormConfigs) Save(_ context.Context, cfg models.FormConfig) error {
	cfg.ID = models.FormConfigID
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	return s.b.write(func(txn *memdb.Txn) error {
		return txn.Insert(tConfig, cloneFormConfig(cfg))
	})
}

type Audit struct{ b *Backend }

func (s *Audit) Log(_ context.Context, e audit.Event) error {
	e.Prepare()
	return s.b.write(func(txn *memdb.Txn) error {
		return txn.Insert(tAudit, cloneEvent(e))
	})
}

func (s *Audit) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	rows, err := all[audit.Event](s.b.db.Txn(false), tAudit, "id")
	if err != nil {
		return nil, err
	}
	var out []audit.Event
	for _, e := range rows {
		if f.Matches(*e) {
			out = append(out, *cloneEvent(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// compile-time checks
var (
	_ store.Profiles      = (*Profiles)(nil)
	_ store.Projects      = (*Projects)(nil)
	_ store.Tickets       = (*Tickets)(nil)
	_ store.BlockedEmails = (*Blocked)(nil)
	_ store.FormConfigs   = (*FormConfigs)(nil)
	_ store.AuditEvents   = (*Audit)(nil)
)
