package memory

import (
	"context"
	"time"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type DonationRequestRepository struct {
	s *Store
}

func cloneRequest(r *domain.DonationRequest) domain.DonationRequest {
	cp := *r
	if r.DonorName != nil {
		v := *r.DonorName
		cp.DonorName = &v
	}
	if r.DonorEmail != nil {
		v := *r.DonorEmail
		cp.DonorEmail = &v
	}
	return cp
}

func (d *DonationRequestRepository) byIDLocked(id string) (int, *domain.DonationRequest) {
	for i, r := range d.s.requests {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func (d *DonationRequestRepository) Insert(_ context.Context, r *domain.DonationRequest) (string, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	stored := cloneRequest(r)
	stored.ID = newID()
	d.s.requests = append(d.s.requests, &stored)
	return stored.ID, nil
}

func (d *DonationRequestRepository) FindByID(_ context.Context, id string) (*domain.DonationRequest, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	if _, r := d.byIDLocked(id); r != nil {
		cp := cloneRequest(r)
		return &cp, nil
	}
	return nil, nil
}

func (d *DonationRequestRepository) Find(_ context.Context, pred query.Predicate) ([]domain.DonationRequest, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	out := []domain.DonationRequest{}
	for _, r := range d.s.requests {
		r := r
		if matches(pred, func(f string) (string, bool) { return requestField(r, f) }) {
			out = append(out, cloneRequest(r))
		}
	}
	sortByCreated(out, func(r domain.DonationRequest) time.Time { return r.CreatedAt }, pred.Sort)
	return out, nil
}

func (d *DonationRequestRepository) AssignDonor(_ context.Context, id, donorName, donorEmail string, now time.Time) (domain.WriteResult, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	_, r := d.byIDLocked(id)
	if r == nil {
		return domain.Updated(0, 0), nil
	}
	r.DonorName = &donorName
	r.DonorEmail = &donorEmail
	r.DonationStatus = domain.StatusInProgress
	r.UpdatedAt = now
	return domain.Updated(1, 1), nil
}

func (d *DonationRequestRepository) SetStatus(_ context.Context, id string, status domain.DonationStatus, clearDonor bool, now time.Time) (domain.WriteResult, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	_, r := d.byIDLocked(id)
	if r == nil {
		return domain.Updated(0, 0), nil
	}
	next := *r
	next.DonationStatus = status
	if clearDonor {
		next.DonorName = nil
		next.DonorEmail = nil
	}
	next.UpdatedAt = now
	// Same donor/status rule the Postgres CHECK constraint enforces.
	if err := next.Validate(); err != nil {
		return domain.WriteResult{}, domain.StoreFailure("donation_requests.set_status", err)
	}
	*r = next
	return domain.Updated(1, 1), nil
}

func (d *DonationRequestRepository) UpdateLogistics(_ context.Context, id string, l domain.Logistics, now time.Time) (domain.WriteResult, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	_, r := d.byIDLocked(id)
	if r == nil {
		return domain.Updated(0, 0), nil
	}
	r.Logistics = l
	r.UpdatedAt = now
	return domain.Updated(1, 1), nil
}

func (d *DonationRequestRepository) Delete(_ context.Context, id string) (domain.WriteResult, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	i, r := d.byIDLocked(id)
	if r == nil {
		return domain.Deleted(0), nil
	}
	d.s.requests = append(d.s.requests[:i], d.s.requests[i+1:]...)
	return domain.Deleted(1), nil
}

func (d *DonationRequestRepository) Count(context.Context) (int64, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return int64(len(d.s.requests)), nil
}
