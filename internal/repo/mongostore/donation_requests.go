package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type requestDoc struct {
	ID                bson.ObjectID `bson:"_id,omitempty"`
	RequesterName     string        `bson:"requesterName"`
	RequesterEmail    string        `bson:"requesterEmail"`
	RecipientName     string        `bson:"recipientName"`
	RecipientDistrict string        `bson:"recipientDistrict"`
	RecipientUpazila  string        `bson:"recipientUpazila"`
	HospitalName      string        `bson:"hospitalName"`
	FullAddress       string        `bson:"fullAddress"`
	BloodGroup        string        `bson:"bloodGroup"`
	DonationDate      string        `bson:"donationDate"`
	DonationTime      string        `bson:"donationTime"`
	RequestMessage    string        `bson:"requestMessage"`
	DonorName         *string       `bson:"donorName"`
	DonorEmail        *string       `bson:"donorEmail"`
	DonationStatus    string        `bson:"donationStatus"`
	CreatedAt         time.Time     `bson:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt"`
}

func fromRequest(r *domain.DonationRequest) requestDoc {
	return requestDoc{
		RequesterName:     r.RequesterName,
		RequesterEmail:    r.RequesterEmail,
		RecipientName:     r.RecipientName,
		RecipientDistrict: r.RecipientDistrict,
		RecipientUpazila:  r.RecipientUpazila,
		HospitalName:      r.HospitalName,
		FullAddress:       r.FullAddress,
		BloodGroup:        r.BloodGroup,
		DonationDate:      r.DonationDate,
		DonationTime:      r.DonationTime,
		RequestMessage:    r.RequestMessage,
		DonorName:         r.DonorName,
		DonorEmail:        r.DonorEmail,
		DonationStatus:    string(r.DonationStatus),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (d requestDoc) toDomain() domain.DonationRequest {
	return domain.DonationRequest{
		ID:             d.ID.Hex(),
		RequesterName:  d.RequesterName,
		RequesterEmail: d.RequesterEmail,
		Logistics: domain.Logistics{
			RecipientName:     d.RecipientName,
			RecipientDistrict: d.RecipientDistrict,
			RecipientUpazila:  d.RecipientUpazila,
			HospitalName:      d.HospitalName,
			FullAddress:       d.FullAddress,
			BloodGroup:        d.BloodGroup,
			DonationDate:      d.DonationDate,
			DonationTime:      d.DonationTime,
			RequestMessage:    d.RequestMessage,
		},
		DonorName:      d.DonorName,
		DonorEmail:     d.DonorEmail,
		DonationStatus: domain.DonationStatus(d.DonationStatus),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type DonationRequestsRepo struct {
	coll *mongo.Collection
}

func (r *DonationRequestsRepo) Insert(ctx context.Context, d *domain.DonationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, fromRequest(d))
	if err != nil {
		return "", domain.StoreFailure("donation_requests.insert", err)
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", domain.StoreFailure("donation_requests.insert", errors.New("unexpected inserted id type"))
	}
	return oid.Hex(), nil
}

func (r *DonationRequestsRepo) FindByID(ctx context.Context, id string) (*domain.DonationRequest, error) {
	filter, ok := byID(id)
	if !ok {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var doc requestDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("donation_requests.find_by_id", err)
	}
	out := doc.toDomain()
	return &out, nil
}

func (r *DonationRequestsRepo) Find(ctx context.Context, pred query.Predicate) ([]domain.DonationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cur, err := r.coll.Find(ctx, toFilter(pred), findOptions(pred))
	if err != nil {
		return nil, domain.StoreFailure("donation_requests.find", err)
	}
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.StoreFailure("donation_requests.find", err)
	}
	out := make([]domain.DonationRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *DonationRequestsRepo) AssignDonor(ctx context.Context, id, donorName, donorEmail string, now time.Time) (domain.WriteResult, error) {
	return r.set(ctx, "donation_requests.assign_donor", id, bson.D{
		{Key: "donorName", Value: donorName},
		{Key: "donorEmail", Value: donorEmail},
		{Key: "donationStatus", Value: string(domain.StatusInProgress)},
		{Key: "updatedAt", Value: now},
	})
}

func (r *DonationRequestsRepo) SetStatus(ctx context.Context, id string, status domain.DonationStatus, clearDonor bool, now time.Time) (domain.WriteResult, error) {
	fields := bson.D{
		{Key: "donationStatus", Value: string(status)},
		{Key: "updatedAt", Value: now},
	}
	if clearDonor {
		fields = append(fields,
			bson.E{Key: "donorName", Value: nil},
			bson.E{Key: "donorEmail", Value: nil},
		)
	}
	return r.set(ctx, "donation_requests.set_status", id, fields)
}

func (r *DonationRequestsRepo) UpdateLogistics(ctx context.Context, id string, l domain.Logistics, now time.Time) (domain.WriteResult, error) {
	return r.set(ctx, "donation_requests.update_logistics", id, bson.D{
		{Key: "recipientName", Value: l.RecipientName},
		{Key: "recipientDistrict", Value: l.RecipientDistrict},
		{Key: "recipientUpazila", Value: l.RecipientUpazila},
		{Key: "hospitalName", Value: l.HospitalName},
		{Key: "fullAddress", Value: l.FullAddress},
		{Key: "bloodGroup", Value: l.BloodGroup},
		{Key: "donationDate", Value: l.DonationDate},
		{Key: "donationTime", Value: l.DonationTime},
		{Key: "requestMessage", Value: l.RequestMessage},
		{Key: "updatedAt", Value: now},
	})
}

func (r *DonationRequestsRepo) Delete(ctx context.Context, id string) (domain.WriteResult, error) {
	filter, ok := byID(id)
	if !ok {
		return domain.Deleted(0), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure("donation_requests.delete", err)
	}
	return domain.WriteResult{Acknowledged: res.Acknowledged, DeletedCount: res.DeletedCount}, nil
}

func (r *DonationRequestsRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, domain.StoreFailure("donation_requests.count", err)
	}
	return n, nil
}

func (r *DonationRequestsRepo) set(ctx context.Context, op, id string, fields bson.D) (domain.WriteResult, error) {
	filter, ok := byID(id)
	if !ok {
		return domain.Updated(0, 0), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure(op, err)
	}
	return updated(res), nil
}
