// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/google/uuid"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection

	// PollInterval drives Watch when change streams are unavailable
	// (standalone servers without a replica set).
	PollInterval time.Duration
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects"), PollInterval: 2 * time.Second}
}

func (s *Store) List(ctx context.Context) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Project{}, store.ErrNotFound
	}
	if err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
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
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, store.ErrDuplicate
		}
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) ExistsByNameCI(ctx context.Context, nameCI string) (bool, error) {
	return s.exists(ctx, bson.M{"name_ci": nameCI})
}

// NameExistsForOther checks the name against every project except excludeID.
func (s *Store) NameExistsForOther(ctx context.Context, nameCI, excludeID string) (bool, error) {
	return s.exists(ctx, bson.M{"name_ci": nameCI, "_id": bson.M{"$ne": excludeID}})
}

func (s *Store) exists(ctx context.Context, filter bson.M) (bool, error) {
	err := s.c.FindOne(ctx, filter).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Rename(ctx context.Context, id, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":    name,
		"name_ci": normalize.NameCI(name),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return store.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
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

func (s *Store) PushMember(ctx context.Context, projectID string, m models.Member) error {
	return s.updateOne(ctx, bson.M{"_id": projectID}, bson.M{"$push": bson.M{"members": m}})
}

func (s *Store) UpdateMember(ctx context.Context, projectID, uid string, m models.Member) error {
	return s.updateOne(ctx,
		bson.M{"_id": projectID, "members.uid": uid},
		bson.M{"$set": bson.M{"members.$": m}},
	)
}

func (s *Store) PullMember(ctx context.Context, projectID, uid string) error {
	return s.updateOne(ctx, bson.M{"_id": projectID}, bson.M{"$pull": bson.M{"members": bson.M{"uid": uid}}})
}

func (s *Store) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListByMemberUID(ctx context.Context, uid string) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, bson.M{"members.uid": uid})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch sends the full project list now and after every change. It uses a
// change stream when the deployment supports one and polls otherwise.
// The channel closes when ctx ends or a reload fails.
func (s *Store) Watch(ctx context.Context) (<-chan []models.Project, error) {
	first, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	cs, csErr := s.c.Watch(ctx, mongo.Pipeline{})

	out := make(chan []models.Project, 1)
	send := func(snap []models.Project) bool {
		select {
		case out <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		if !send(first) {
			if csErr == nil {
				cs.Close(context.Background())
			}
			return
		}

		if csErr == nil {
			defer cs.Close(context.Background())
			for cs.Next(ctx) {
				snap, err := s.List(ctx)
				if err != nil || !send(snap) {
					return
				}
			}
			return
		}

		ticker := time.NewTicker(s.PollInterval)
		defer ticker.Stop()
		last := first
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := s.List(ctx)
				if err != nil {
					return
				}
				if reflect.DeepEqual(snap, last) {
					continue
				}
				last = snap
				if !send(snap) {
					return
				}
			}
		}
	}()
	return out, nil
}
