package memory

import (
	"context"
	"time"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) findLocked(email string) *domain.User {
	for _, u := range r.s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *UserRepository) byIDLocked(id string) *domain.User {
	for _, u := range r.s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *UserRepository) SyncLogin(_ context.Context, u *domain.User, now time.Time) (*domain.User, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing := r.findLocked(u.Email); existing != nil {
		existing.LastLoggedIn = now
		cp := *existing
		return &cp, false, nil
	}
	stored := *u
	stored.ID = newID()
	r.s.users = append(r.s.users, &stored)
	cp := stored
	return &cp, true, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if u := r.findLocked(email); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *UserRepository) Find(_ context.Context, pred query.Predicate) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.User{}
	for _, u := range r.s.users {
		u := u
		if matches(pred, func(f string) (string, bool) { return userField(u, f) }) {
			out = append(out, *u)
		}
	}
	sortByCreated(out, func(u domain.User) time.Time { return u.CreatedAt }, pred.Sort)
	return out, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, email string, p domain.Profile) (domain.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.findLocked(email)
	if u == nil {
		return domain.Updated(0, 0), nil
	}
	if u.Profile == p {
		return domain.Updated(1, 0), nil
	}
	u.Profile = p
	return domain.Updated(1, 1), nil
}

func (r *UserRepository) SetStatus(_ context.Context, id string, status domain.UserStatus) (domain.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.byIDLocked(id)
	if u == nil {
		return domain.Updated(0, 0), nil
	}
	if u.Status == status {
		return domain.Updated(1, 0), nil
	}
	u.Status = status
	return domain.Updated(1, 1), nil
}

func (r *UserRepository) SetRole(_ context.Context, id string, role domain.Role) (domain.WriteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := r.byIDLocked(id)
	if u == nil {
		return domain.Updated(0, 0), nil
	}
	if u.Role == role {
		return domain.Updated(1, 0), nil
	}
	u.Role = role
	return domain.Updated(1, 1), nil
}

func (r *UserRepository) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}
