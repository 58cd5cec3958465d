package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type DonationRequestsRepo struct{ pool *pgxpool.Pool }

func NewDonationRequestsRepo(pool *pgxpool.Pool) *DonationRequestsRepo {
	return &DonationRequestsRepo{pool: pool}
}

const requestCols = `id::text, requester_name, requester_email,
recipient_name, recipient_district, recipient_upazila,
hospital_name, full_address, blood_group,
donation_date, donation_time, request_message,
donor_name, donor_email, donation_status, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.DonationRequest, error) {
	var d domain.DonationRequest
	err := row.Scan(
		&d.ID, &d.RequesterName, &d.RequesterEmail,
		&d.RecipientName, &d.RecipientDistrict, &d.RecipientUpazila,
		&d.HospitalName, &d.FullAddress, &d.BloodGroup,
		&d.DonationDate, &d.DonationTime, &d.RequestMessage,
		&d.DonorName, &d.DonorEmail, &d.DonationStatus, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRequestsRepo) Insert(ctx context.Context, d *domain.DonationRequest) (string, error) {
	const q = `INSERT INTO donation_requests (
    requester_name, requester_email,
    recipient_name, recipient_district, recipient_upazila,
    hospital_name, full_address, blood_group,
    donation_date, donation_time, request_message,
    donor_name, donor_email, donation_status, created_at, updated_at
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
  RETURNING id::text`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id string
	err := r.pool.QueryRow(ctx, q,
		d.RequesterName, d.RequesterEmail,
		d.RecipientName, d.RecipientDistrict, d.RecipientUpazila,
		d.HospitalName, d.FullAddress, d.BloodGroup,
		d.DonationDate, d.DonationTime, d.RequestMessage,
		d.DonorName, d.DonorEmail, d.DonationStatus, d.CreatedAt, d.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", domain.StoreFailure("donation_requests.insert", err)
	}
	return id, nil
}

func (r *DonationRequestsRepo) FindByID(ctx context.Context, id string) (*domain.DonationRequest, error) {
	if !validID(id) {
		return nil, nil
	}
	const q = `SELECT ` + requestCols + ` FROM donation_requests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	d, err := scanRequest(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("donation_requests.find_by_id", err)
	}
	return d, nil
}

func (r *DonationRequestsRepo) Find(ctx context.Context, pred query.Predicate) ([]domain.DonationRequest, error) {
	suffix, args, err := toSQL(pred, requestColumns)
	if err != nil {
		return nil, domain.StoreFailure("donation_requests.find", err)
	}
	q := `SELECT ` + requestCols + ` FROM donation_requests` + suffix

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.StoreFailure("donation_requests.find", err)
	}
	defer rows.Close()

	requests := []domain.DonationRequest{}
	for rows.Next() {
		d, err := scanRequest(rows)
		if err != nil {
			return nil, domain.StoreFailure("donation_requests.find", err)
		}
		requests = append(requests, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreFailure("donation_requests.find", err)
	}
	return requests, nil
}

func (r *DonationRequestsRepo) AssignDonor(ctx context.Context, id, donorName, donorEmail string, now time.Time) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Updated(0, 0), nil
	}
	const q = `
UPDATE donation_requests
SET donor_name=$2, donor_email=$3, donation_status='inprogress', updated_at=$4
WHERE id=$1`
	return r.exec(ctx, "donation_requests.assign_donor", q, id, donorName, donorEmail, now)
}

func (r *DonationRequestsRepo) SetStatus(ctx context.Context, id string, status domain.DonationStatus, clearDonor bool, now time.Time) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Updated(0, 0), nil
	}
	const q = `
UPDATE donation_requests
SET donation_status=$2,
    donor_name  = CASE WHEN $3 THEN NULL ELSE donor_name END,
    donor_email = CASE WHEN $3 THEN NULL ELSE donor_email END,
    updated_at=$4
WHERE id=$1`
	return r.exec(ctx, "donation_requests.set_status", q, id, status, clearDonor, now)
}

func (r *DonationRequestsRepo) UpdateLogistics(ctx context.Context, id string, l domain.Logistics, now time.Time) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Updated(0, 0), nil
	}
	const q = `
UPDATE donation_requests
SET recipient_name=$2, recipient_district=$3, recipient_upazila=$4,
    hospital_name=$5, full_address=$6, blood_group=$7,
    donation_date=$8, donation_time=$9, request_message=$10,
    updated_at=$11
WHERE id=$1`
	return r.exec(ctx, "donation_requests.update_logistics", q, id,
		l.RecipientName, l.RecipientDistrict, l.RecipientUpazila,
		l.HospitalName, l.FullAddress, l.BloodGroup,
		l.DonationDate, l.DonationTime, l.RequestMessage,
		now,
	)
}

func (r *DonationRequestsRepo) Delete(ctx context.Context, id string) (domain.WriteResult, error) {
	if !validID(id) {
		return domain.Deleted(0), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM donation_requests WHERE id=$1`, id)
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure("donation_requests.delete", err)
	}
	return domain.Deleted(tag.RowsAffected()), nil
}

func (r *DonationRequestsRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM donation_requests`).Scan(&n); err != nil {
		return 0, domain.StoreFailure("donation_requests.count", err)
	}
	return n, nil
}

func (r *DonationRequestsRepo) exec(ctx context.Context, op, q string, args ...any) (domain.WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure(op, err)
	}
	n := tag.RowsAffected()
	return domain.Updated(n, n), nil
}
