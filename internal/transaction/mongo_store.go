package transaction

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

// CollectionName is the Mongo collection holding transaction records.
const CollectionName = "transactions"

type recordDocument struct {
	ID        string               `bson:"_id"`
	Sender    *string              `bson:"sender"`
	Receiver  string               `bson:"receiver"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Type      string               `bson:"transactionType"`
	Status    string               `bson:"status"`
	CreatedAt time.Time            `bson:"createdAt"`
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// MongoStore keeps transaction records in MongoDB.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds a record store on the transactions collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the indexes backing account listings.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: newestFirst},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	return nil
}

// Create inserts a record.
func (s *MongoStore) Create(ctx context.Context, rec Record) error {
	amount, err := infra.ToDecimal128(rec.Amount)
	if err != nil {
		return err
	}
	doc := recordDocument{
		ID:        rec.ID,
		Receiver:  rec.ReceiverID,
		Amount:    amount,
		Type:      string(rec.Type),
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt.UTC(),
	}
	if rec.HasSender() {
		sender := rec.SenderID
		doc.Sender = &sender
	}
	_, err = s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a record by identifier.
func (s *MongoStore) GetByID(ctx context.Context, id string) (Record, error) {
	var doc recordDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find transaction: %w", err)
	}
	return doc.toRecord()
}

// UpdateStatus overwrites the status of an existing record.
func (s *MongoStore) UpdateStatus(ctx context.Context, id string, status Status) (Record, error) {
	var doc recordDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(status)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("update transaction status: %w", err)
	}
	return doc.toRecord()
}

// FindBySenderOrReceiver lists records where accountID is either party.
func (s *MongoStore) FindBySenderOrReceiver(ctx context.Context, accountID string) ([]Record, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"sender": accountID},
		bson.M{"receiver": accountID},
	}})
}

// FindAll lists every record.
func (s *MongoStore) FindAll(ctx context.Context) ([]Record, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]Record, error) {
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d recordDocument) toRecord() (Record, error) {
	amount, err := infra.FromDecimal128(d.Amount)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:         d.ID,
		ReceiverID: d.Receiver,
		Amount:     amount,
		Type:       Type(d.Type),
		Status:     Status(d.Status),
		CreatedAt:  d.CreatedAt.UTC(),
	}
	if d.Sender != nil {
		rec.SenderID = *d.Sender
	}
	return rec, nil
}
