// Package mongostore assembles the MongoDB-backed store set.
package mongostore

import (
	"context"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/store/audit"
	blockedstore "github.com/dalemusser/supportdesk/internal/app/store/blocked"
	formconfigstore "github.com/dalemusser/supportdesk/internal/app/store/formconfig"
	projectstore "github.com/dalemusser/supportdesk/internal/app/store/projects"
	ticketstore "github.com/dalemusser/supportdesk/internal/app/store/tickets"
	userstore "github.com/dalemusser/supportdesk/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type pinger struct{ client *mongo.Client }

func (p pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// New returns the store set for db. client is used for health pings.
func New(client *mongo.Client, db *mongo.Database) store.Set {
	return store.Set{
		Profiles:    userstore.New(db),
		Projects:    projectstore.New(db),
		Tickets:     ticketstore.New(db),
		Blocked:     blockedstore.New(db),
		FormConfigs: formconfigstore.New(db),
		Audit:       audit.New(db),
		Health:      pinger{client: client},
	}
}
