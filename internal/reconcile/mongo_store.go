package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/ledgerflow/internal/infra"
)

// CollectionName is the Mongo collection holding reconciliation entries.
const CollectionName = "reconciliation_entries"

type entryDocument struct {
	ID            string               `bson:"_id"`
	Kind          string               `bson:"kind"`
	RecordID      string               `bson:"recordId"`
	AccountID     string               `bson:"accountId"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Payload       string               `bson:"payload"`
	Status        string               `bson:"status"`
	Attempts      int                  `bson:"attempts"`
	LastError     string               `bson:"lastError"`
	NextAttemptAt time.Time            `bson:"nextAttemptAt"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

// MongoStore keeps entries in MongoDB.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds an entry store on the reconciliation collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the index used to find due entries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextAttemptAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create reconciliation index: %w", err)
	}
	return nil
}

// Insert stores a new entry.
func (s *MongoStore) Insert(ctx context.Context, e Entry) error {
	amount, err := infra.ToDecimal128(e.Amount)
	if err != nil {
		return err
	}
	_, err = s.coll.InsertOne(ctx, entryDocument{
		ID:            e.ID,
		Kind:          string(e.Kind),
		RecordID:      e.RecordID,
		AccountID:     e.AccountID,
		Amount:        amount,
		Payload:       string(e.Payload),
		Status:        string(e.Status),
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		NextAttemptAt: e.NextAttemptAt.UTC(),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert reconciliation entry: %w", err)
	}
	return nil
}

// ClaimDue leases due entries one at a time so each claim is atomic.
func (s *MongoStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Entry, error) {
	filter := bson.M{"status": string(StatusPending), "nextAttemptAt": bson.M{"$lte": now.UTC()}}
	update := bson.M{"$set": bson.M{"nextAttemptAt": now.Add(lease).UTC()}}
	opts := options.FindOneAndUpdate().SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}})

	out := make([]Entry, 0)
	for limit <= 0 || len(out) < limit {
		var doc entryDocument
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("claim reconciliation entry: %w", err)
		}
		e, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Update overwrites the mutable fields of an entry.
func (s *MongoStore) Update(ctx context.Context, e Entry) error {
	res, err := s.coll.UpdateByID(ctx, e.ID, bson.M{"$set": bson.M{
		"status":        string(e.Status),
		"attempts":      e.Attempts,
		"lastError":     e.LastError,
		"nextAttemptAt": e.NextAttemptAt.UTC(),
		"updatedAt":     e.UpdatedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update reconciliation entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns entries newest first, optionally filtered by status.
func (s *MongoStore) List(ctx context.Context, status Status) ([]Entry, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list reconciliation entries: %w", err)
	}
	var docs []entryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reconciliation entries: %w", err)
	}
	out := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d entryDocument) toEntry() (Entry, error) {
	amount, err := infra.FromDecimal128(d.Amount)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:            d.ID,
		Kind:          Kind(d.Kind),
		RecordID:      d.RecordID,
		AccountID:     d.AccountID,
		Amount:        amount,
		Payload:       []byte(d.Payload),
		Status:        Status(d.Status),
		Attempts:      d.Attempts,
		LastError:     d.LastError,
		NextAttemptAt: d.NextAttemptAt.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}
