// internal/app/store/memstore/clone.go
package memstore

import (
	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneProfile(p models.UserProfile) *models.UserProfile {
	p.Projects = cloneStrings(p.Projects)
	p.Project = cloneStrings(p.Project)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		p.UpdatedAt = &t
	}
	return &p
}

func cloneProject(p models.Project) *models.Project {
	if p.Members != nil {
		p.Members = append([]models.Member{}, p.Members...)
	}
	return &p
}

func cloneTicket(t models.Ticket) *models.Ticket {
	if t.Comments != nil {
		t.Comments = append([]models.Comment{}, t.Comments...)
	}
	return &t
}

func cloneOptions(opts []models.FormOption) []models.FormOption {
	if opts == nil {
		return nil
	}
	out := make([]models.FormOption, len(opts))
	for i, o := range opts {
		o.Children = cloneOptions(o.Children)
		out[i] = o
	}
	return out
}

func cloneFormConfig(c models.FormConfig) *models.FormConfig {
	if c.Fields != nil {
		fields := make([]models.FormField, len(c.Fields))
		for i, f := range c.Fields {
			f.Options = cloneStrings(f.Options)
			fields[i] = f
		}
		c.Fields = fields
	}
	c.Modules = cloneOptions(c.Modules)
	return &c
}

func cloneEvent(e audit.Event) *audit.Event {
	if e.Details != nil {
		d := make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			d[k] = v
		}
		e.Details = d
	}
	return &e
}
