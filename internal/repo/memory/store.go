// Package memory is an in-process store used for local runs and tests.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

// Store keeps both collections in insertion order behind one lock.
type Store struct {
	mu       sync.RWMutex
	users    []*domain.User
	requests []*domain.DonationRequest
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) DonationRequests() *DonationRequestRepository {
	return &DonationRequestRepository{s: s}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func userField(u *domain.User, field string) (string, bool) {
	switch field {
	case query.FieldEmail:
		return u.Email, true
	case query.FieldRole:
		return string(u.Role), true
	case query.FieldBloodGroup:
		return u.BloodGroup, true
	case query.FieldDistrict:
		return u.District, true
	case query.FieldUpazila:
		return u.Upazila, true
	}
	return "", false
}

func requestField(r *domain.DonationRequest, field string) (string, bool) {
	switch field {
	case query.FieldRequesterEmail:
		return r.RequesterEmail, true
	case query.FieldDonorEmail:
		if r.DonorEmail == nil {
			return "", false
		}
		return *r.DonorEmail, true
	case query.FieldDonationStatus:
		return string(r.DonationStatus), true
	case query.FieldBloodGroup:
		return r.BloodGroup, true
	}
	return "", false
}

// matches evaluates pred the way a document store does: a missing field
// never equals a value and always differs from it.
func matches(pred query.Predicate, get func(field string) (string, bool)) bool {
	for _, c := range pred.Clauses {
		v, ok := get(c.Field)
		switch c.Op {
		case query.Eq:
			if !ok || v != c.Value {
				return false
			}
		case query.Ne:
			if ok && v == c.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortByCreated[T any](items []T, created func(T) time.Time, s *query.Sort) {
	if s == nil || s.Field != query.FieldCreatedAt {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if s.Desc {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}
