// Package memstore is an in-memory backend built on go-memdb. It serves
// development runs (backend=memory) and tests.
//
// memdb hands out the stored pointer on reads, so every value is cloned
// on the way in and on the way out.
package memstore

import (
	"github.com/hashicorp/go-memdb"
)

const (
	tUsers    = "users"
	tProjects = "projects"
	tTickets  = "tickets"
	tBlocked  = "blocked_emails"
	tConfig   = "config"
	tAudit    = "audit_events"
)

func idIndex(field string) *memdb.IndexSchema {
	return &memdb.IndexSchema{
		Name:    "id",
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: field},
	}
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tUsers: {
				Name: tUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": idIndex("ID"),
					"email": {
						Name:    "email",
						Indexer: &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
					"project": {
						Name:         "project",
						AllowMissing: true,
						Indexer:      &memdb.StringSliceFieldIndex{Field: "Project"},
					},
				},
			},
			tProjects: {
				Name: tProjects,
				Indexes: map[string]*memdb.IndexSchema{
					"id": idIndex("ID"),
					// Uniqueness is checked by the store before writing.
					"name_ci": {
						Name:    "name_ci",
						Indexer: &memdb.StringFieldIndex{Field: "NameCI"},
					},
				},
			},
			tTickets: {
				Name: tTickets,
				Indexes: map[string]*memdb.IndexSchema{
					"id": idIndex("ID"),
					"project": {
						Name:         "project",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Project"},
					},
				},
			},
			tBlocked: {
				Name:    tBlocked,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex("Email")},
			},
			tConfig: {
				Name:    tConfig,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")},
			},
			tAudit: {
				Name:    tAudit,
				Indexes: map[string]*memdb.IndexSchema{"id": idIndex("ID")},
			},
		},
	}
}
