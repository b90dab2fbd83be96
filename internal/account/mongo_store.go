package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/ledgerflow/internal/infra"
)

// CollectionName is the Mongo collection holding accounts.
const CollectionName = "accounts"

type accountDocument struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Balance   primitive.Decimal128 `bson:"balance"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

// MongoStore keeps accounts in MongoDB. Conditional adjustments use
// FindOneAndUpdate with a balance filter so the check and the $inc are one
// server-side operation.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore builds a store on the accounts collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// Create inserts an account document.
func (s *MongoStore) Create(ctx context.Context, acc Account) error {
	balance, err := infra.ToDecimal128(acc.Balance)
	if err != nil {
		return err
	}
	_, err = s.coll.InsertOne(ctx, accountDocument{
		ID:        acc.ID,
		Name:      acc.Name,
		Balance:   balance,
		CreatedAt: acc.CreatedAt.UTC(),
		UpdatedAt: acc.UpdatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get fetches an account by identifier.
func (s *MongoStore) Get(ctx context.Context, id string) (Account, error) {
	var doc accountDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	return doc.toAccount()
}

// List returns every account ordered by name.
func (s *MongoStore) List(ctx context.Context) ([]Account, error) {
	byName := bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(byName))
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	var docs []accountDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]Account, 0, len(docs))
	for _, doc := range docs {
		acc, err := doc.toAccount()
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

// ConditionalAdjustBalance adds delta when the resulting balance satisfies pred.
func (s *MongoStore) ConditionalAdjustBalance(ctx context.Context, id string, delta decimal.Decimal, pred Predicate) (Account, error) {
	inc, err := infra.ToDecimal128(delta)
	if err != nil {
		return Account{}, err
	}
	minimum, err := infra.ToDecimal128(pred.MinimumCurrent(delta))
	if err != nil {
		return Account{}, err
	}

	filter := bson.M{"_id": id, "balance": bson.M{"$gte": minimum}}
	update := bson.M{
		"$inc":         bson.M{"balance": inc},
		"$currentDate": bson.M{"updatedAt": true},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc accountDocument
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toAccount()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Account{}, fmt.Errorf("adjust balance: %w", err)
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return Account{}, fmt.Errorf("check account: %w", err)
	}
	if n == 0 {
		return Account{}, ErrNotFound
	}
	return Account{}, ErrPredicateFailed
}

func (d accountDocument) toAccount() (Account, error) {
	balance, err := infra.FromDecimal128(d.Balance)
	if err != nil {
		return Account{}, err
	}
	return Account{
		ID:        d.ID,
		Name:      d.Name,
		Balance:   balance,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}
