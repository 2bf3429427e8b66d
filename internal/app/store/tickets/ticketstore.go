// internal/app/store/tickets/ticketstore.go
package ticketstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	counters *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tickets"), counters: db.Collection("counters")}
}

// nextNumber allocates the next ticket number from the counters collection.
func (s *Store) nextNumber(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "tickets"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func (s *Store) Create(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	n, err := s.nextNumber(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.Number = n
	if t.Status == "" {
		t.Status = models.TicketOpen
	}
	if t.Comments == nil {
		t.Comments = []models.Comment{}
	}
	t.AssignedTo.Email = normalize.Email(t.AssignedTo.Email)
	t.Created = now
	t.LastUpdated = now
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Ticket, error) {
	var t models.Ticket
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Ticket{}, store.ErrNotFound
	}
	if err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, f store.TicketFilter) ([]models.Ticket, error) {
	filter := bson.M{}
	if f.Projects != nil {
		filter["project"] = bson.M{"$in": f.Projects}
	}
	if f.AssigneeEmail != "" {
		filter["assigned_to.email"] = normalize.Email(f.AssigneeEmail)
	}
	if f.CreatedBy != "" {
		filter["created_by"] = normalize.Email(f.CreatedBy)
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "ticket_number", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Ticket
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, u store.TicketUpdate) (models.Ticket, error) {
	set := bson.M{"last_updated": time.Now().UTC()}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.AssignedTo != nil {
		a := *u.AssignedTo
		a.Email = normalize.Email(a.Email)
		set["assigned_to"] = a
	}
	update := bson.M{"$set": set}
	if u.Comment != nil {
		update["$push"] = bson.M{"comments": *u.Comment}
	}

	var t models.Ticket
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Ticket{}, store.ErrNotFound
	}
	if err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

// RenameProject rewrites the denormalized project name on every ticket
// that referenced oldName.
func (s *Store) RenameProject(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"project": oldName}, bson.M{"$set": bson.M{"project": newName}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
