// internal/app/store/blocked/blockedstore.go
package blockedstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists blocked addresses keyed by normalized email.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("blocked_emails")}
}

func (s *Store) IsBlocked(ctx context.Context, email string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": normalize.Email(email)}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Block adds or refreshes an entry.
func (s *Store) Block(ctx context.Context, b models.BlockedEmail) error {
	b.Email = normalize.Email(b.Email)
	if b.BlockedAt.IsZero() {
		b.BlockedAt = time.Now().UTC()
	}
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": b.Email}, b, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Unblock(ctx context.Context, email string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": normalize.Email(email)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]models.BlockedEmail, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.BlockedEmail
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
