// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists user profiles in the "users" collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id string) (models.UserProfile, error) {
	var p models.UserProfile
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserProfile{}, store.ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}

// FindByEmail returns every profile using email. Normally there is at most
// one, but temporary and real ids can coexist until reconciled.
func (s *Store) FindByEmail(ctx context.Context, email string) ([]models.UserProfile, error) {
	return s.find(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) List(ctx context.Context) ([]models.UserProfile, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.UserProfile, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.UserProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, p models.UserProfile) error {
	p.Email = normalize.Email(p.Email)
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"email": normalize.Email(email)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RenameProject rewrites oldName to newName inside every profile's project
// name list using an array filter, leaving other entries untouched.
func (s *Store) RenameProject(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"project": oldName},
		bson.M{"$set": bson.M{"project.$[p]": newName}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"p": oldName}},
		}),
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
