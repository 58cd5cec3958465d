// Package mongostore keeps users and donation requests in MongoDB, using
// the same document layout the web client reads (camelCase fields, _id keys).
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

const (
	usersCollection    = "users"
	requestsCollection = "donation_requests"
)

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{coll: s.db.Collection(usersCollection)}
}

func (s *Store) DonationRequests() *DonationRequestsRepo {
	return &DonationRequestsRepo{coll: s.db.Collection(requestsCollection)}
}

// EnsureIndexes creates the unique email index that backs login sync plus
// the indexes the listing filters use.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "bloodGroup", Value: 1}, {Key: "district", Value: 1}}},
	})
	if err != nil {
		return domain.StoreFailure("users.indexes", err)
	}
	_, err = s.db.Collection(requestsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "requesterEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "donorEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "donationStatus", Value: 1}}},
	})
	if err != nil {
		return domain.StoreFailure("donation_requests.indexes", err)
	}
	return nil
}

// toFilter renders pred as a bson filter. Logical field names are the stored
// document keys.
func toFilter(pred query.Predicate) bson.D {
	f := bson.D{}
	for _, c := range pred.Clauses {
		switch c.Op {
		case query.Eq:
			f = append(f, bson.E{Key: c.Field, Value: c.Value})
		case query.Ne:
			f = append(f, bson.E{Key: c.Field, Value: bson.D{{Key: "$ne", Value: c.Value}}})
		}
	}
	return f
}

func findOptions(pred query.Predicate) *options.FindOptionsBuilder {
	opts := options.Find()
	if pred.Sort != nil {
		dir := 1
		if pred.Sort.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: pred.Sort.Field, Value: dir}})
	}
	return opts
}

// byID builds an _id filter. ok is false for ids that are not ObjectIDs,
// which can never match.
func byID(id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}}, true
}

func updated(res *mongo.UpdateResult) domain.WriteResult {
	return domain.WriteResult{
		Acknowledged:  res.Acknowledged,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}
}
