// Package repo declares the store contracts used by the services. Lookups
// return (nil, nil) when nothing matches; every other failure is a
// *domain.StoreError.
package repo

import (
	"context"
	"time"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
)

type UserRepository interface {
	// SyncLogin inserts u when its email is unknown, otherwise it only moves
	// lastLoggedIn to now. It reports whether a record was created.
	SyncLogin(ctx context.Context, u *domain.User, now time.Time) (*domain.User, bool, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Find(ctx context.Context, pred query.Predicate) ([]domain.User, error)
	UpdateProfile(ctx context.Context, email string, p domain.Profile) (domain.WriteResult, error)
	SetStatus(ctx context.Context, id string, status domain.UserStatus) (domain.WriteResult, error)
	SetRole(ctx context.Context, id string, role domain.Role) (domain.WriteResult, error)
	Count(ctx context.Context) (int64, error)
}

type DonationRequestRepository interface {
	Insert(ctx context.Context, r *domain.DonationRequest) (string, error)
	FindByID(ctx context.Context, id string) (*domain.DonationRequest, error)
	Find(ctx context.Context, pred query.Predicate) ([]domain.DonationRequest, error)
	AssignDonor(ctx context.Context, id, donorName, donorEmail string, now time.Time) (domain.WriteResult, error)
	SetStatus(ctx context.Context, id string, status domain.DonationStatus, clearDonor bool, now time.Time) (domain.WriteResult, error)
	UpdateLogistics(ctx context.Context, id string, l domain.Logistics, now time.Time) (domain.WriteResult, error)
	Delete(ctx context.Context, id string) (domain.WriteResult, error)
	Count(ctx context.Context) (int64, error)
}
