// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/supportdesk/internal/app/store/memstore"
	"github.com/dalemusser/supportdesk/internal/app/store/mongostore"
	"github.com/dalemusser/supportdesk/internal/app/system/events"
	"github.com/dalemusser/supportdesk/internal/app/system/indexes"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the storage backend and the optional redis and RabbitMQ
// connections.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Backend: appCfg.Backend, svc: &services{}}

	switch appCfg.Backend {
	case BackendMemory:
		b, err := memstore.New()
		if err != nil {
			return DBDeps{}, err
		}
		deps.Stores = b.Set()
		logger.Info("using in-memory backend")
	default:
		cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
		defer cancel()
		client, err := mongo.Connect(cctx, options.Client().ApplyURI(appCfg.MongoURI))
		if err != nil {
			return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(cctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		deps.Stores = mongostore.New(client, deps.MongoDatabase)
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	}

	if appCfg.RedisAddr != "" {
		deps.Redis = redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err := deps.Redis.Ping(pctx).Err()
		cancel()
		if err != nil {
			// The limiter fails open, so a missing redis only weakens it.
			logger.Warn("redis unreachable at startup", zap.String("addr", appCfg.RedisAddr), zap.Error(err))
		}
	}

	if appCfg.AMQPURL != "" {
		pub, err := events.DialAMQP(appCfg.AMQPURL, appCfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable; domain events disabled", zap.Error(err))
		} else {
			deps.AMQP = pub
		}
	}

	return deps, nil
}

// EnsureSchema creates the MongoDB indexes. The memory backend declares its
// indexes in its schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	return indexes.EnsureAll(ictx, deps.MongoDatabase, logger)
}
