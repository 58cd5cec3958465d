package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type userDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	Name         string        `bson:"name"`
	Avatar       string        `bson:"avatar"`
	BloodGroup   string        `bson:"bloodGroup"`
	District     string        `bson:"district"`
	Upazila      string        `bson:"upazila"`
	Role         string        `bson:"role"`
	Status       string        `bson:"status"`
	CreatedAt    time.Time     `bson:"createdAt"`
	LastLoggedIn time.Time     `bson:"lastLoggedIn"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:    d.ID.Hex(),
		Email: d.Email,
		Profile: domain.Profile{
			Name:       d.Name,
			Avatar:     d.Avatar,
			BloodGroup: d.BloodGroup,
			District:   d.District,
			Upazila:    d.Upazila,
		},
		Role:         domain.Role(d.Role),
		Status:       domain.UserStatus(d.Status),
		CreatedAt:    d.CreatedAt,
		LastLoggedIn: d.LastLoggedIn,
	}
}

type UsersRepo struct {
	coll *mongo.Collection
}

// upserter is the part of *mongo.Collection login sync needs.
type upserter interface {
	UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

func (r *UsersRepo) SyncLogin(ctx context.Context, u *domain.User, now time.Time) (*domain.User, bool, error) {
	return syncLogin(ctx, r.coll, u, now)
}

func syncLogin(ctx context.Context, coll upserter, u *domain.User, now time.Time) (*domain.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	filter := bson.D{{Key: "email", Value: u.Email}}
	upsert, touch := syncLoginUpdates(u, now)

	res, err := coll.UpdateOne(ctx, filter, upsert, options.UpdateOne().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race for the same email; the winner's record stands.
		res, err = coll.UpdateOne(ctx, filter, touch)
	}
	if err != nil {
		return nil, false, domain.StoreFailure("users.sync_login", err)
	}

	var doc userDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, false, domain.StoreFailure("users.sync_login", err)
	}
	out := doc.toDomain()
	return &out, res.UpsertedCount == 1, nil
}

// syncLoginUpdates returns the upsert document for a first login and the
// lastLoggedIn-only update used when another writer inserted the email first.
func syncLoginUpdates(u *domain.User, now time.Time) (upsert, touch bson.D) {
	set := bson.E{Key: "$set", Value: bson.D{{Key: "lastLoggedIn", Value: now}}}
	onInsert := bson.E{Key: "$setOnInsert", Value: bson.D{
		{Key: "name", Value: u.Name},
		{Key: "avatar", Value: u.Avatar},
		{Key: "bloodGroup", Value: u.BloodGroup},
		{Key: "district", Value: u.District},
		{Key: "upazila", Value: u.Upazila},
		{Key: "role", Value: string(u.Role)},
		{Key: "status", Value: string(u.Status)},
		{Key: "createdAt", Value: u.CreatedAt},
	}}
	return bson.D{set, onInsert}, bson.D{set}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var doc userDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("users.find_by_email", err)
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *UsersRepo) Find(ctx context.Context, pred query.Predicate) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cur, err := r.coll.Find(ctx, toFilter(pred), findOptions(pred))
	if err != nil {
		return nil, domain.StoreFailure("users.find", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.StoreFailure("users.find", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, email string, p domain.Profile) (domain.WriteResult, error) {
	set := bson.D{
		{Key: "name", Value: p.Name},
		{Key: "avatar", Value: p.Avatar},
		{Key: "bloodGroup", Value: p.BloodGroup},
		{Key: "district", Value: p.District},
		{Key: "upazila", Value: p.Upazila},
	}
	return r.set(ctx, "users.update_profile", bson.D{{Key: "email", Value: email}}, set)
}

func (r *UsersRepo) SetStatus(ctx context.Context, id string, status domain.UserStatus) (domain.WriteResult, error) {
	filter, ok := byID(id)
	if !ok {
		return domain.Updated(0, 0), nil
	}
	return r.set(ctx, "users.set_status", filter, bson.D{{Key: "status", Value: string(status)}})
}

func (r *UsersRepo) SetRole(ctx context.Context, id string, role domain.Role) (domain.WriteResult, error) {
	filter, ok := byID(id)
	if !ok {
		return domain.Updated(0, 0), nil
	}
	return r.set(ctx, "users.set_role", filter, bson.D{{Key: "role", Value: string(role)}})
}

func (r *UsersRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, domain.StoreFailure("users.count", err)
	}
	return n, nil
}

func (r *UsersRepo) set(ctx context.Context, op string, filter, fields bson.D) (domain.WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure(op, err)
	}
	return updated(res), nil
}
