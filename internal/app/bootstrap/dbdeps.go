// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Storage backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	Backend string
	Stores  store.Set

	// Set only for the mongo backend.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Optional; nil when not configured.
	Redis *redis.Client
	AMQP  *events.AMQP

	// Filled by Startup; shared with BuildHandler and Shutdown.
	svc *services
}

// publisher returns the domain event sink.
func (d DBDeps) publisher() events.Publisher {
	if d.AMQP != nil {
		return d.AMQP
	}
	return events.Nop{}
}
