// internal/app/store/formconfig/formconfigstore.go
package formconfigstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes the ticket form singleton in the "config" collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("config")}
}

func (s *Store) Get(ctx context.Context) (models.FormConfig, error) {
	var cfg models.FormConfig
	err := s.c.FindOne(ctx, bson.M{"_id": models.FormConfigID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FormConfig{}, store.ErrNotFound
	}
	if err != nil {
		return models.FormConfig{}, err
	}
	return cfg, nil
}

func (s *Store) Save(ctx context.Context, cfg models.FormConfig) error {
	cfg.ID = models.FormConfigID
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": cfg.ID}, cfg, options.Replace().SetUpsert(true))
	return err
}
