package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
	"github.com/diagnosis/bloodcare/internal/repo"
	"github.com/diagnosis/bloodcare/pkg/events"
	"github.com/diagnosis/bloodcare/pkg/logger"
)

type UserService interface {
	SyncLogin(ctx context.Context, ac domain.AuthContext, cmd domain.SyncLoginCommand) (*domain.User, error)
	GetStatus(ctx context.Context, email string) (*domain.StatusView, error)
	GetBloodType(ctx context.Context, email string) (*domain.BloodTypeView, error)
	GetRole(ctx context.Context, email string) (*domain.RoleView, error)
	GetProfile(ctx context.Context, ac domain.AuthContext, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, ac domain.AuthContext, email string, cmd domain.UpdateProfileCommand) (domain.WriteResult, error)
	ListDonors(ctx context.Context, p query.DonorParams) ([]domain.User, error)
	ListAll(ctx context.Context, ac domain.AuthContext) ([]domain.User, error)
	SetStatus(ctx context.Context, ac domain.AuthContext, id string, status domain.UserStatus) (domain.WriteResult, error)
	SetRole(ctx context.Context, ac domain.AuthContext, id string, role domain.Role) (domain.WriteResult, error)
}

type userService struct {
	users    repo.UserRepository
	eventBus events.Publisher
	now      func() time.Time
}

func NewUserService(users repo.UserRepository, eventBus events.Publisher) UserService {
	return &userService{
		users:    users,
		eventBus: eventBus,
		now:      time.Now,
	}
}

// SyncLogin registers the principal on first sight and otherwise only moves
// lastLoggedIn. The email always comes from the verified principal.
func (s *userService) SyncLogin(ctx context.Context, ac domain.AuthContext, cmd domain.SyncLoginCommand) (*domain.User, error) {
	if err := requireAuth(ac); err != nil {
		return nil, err
	}
	if cmd.Email != "" && cmd.Email != ac.Email {
		return nil, &domain.AccessError{Email: ac.Email, Role: ac.Role, Reason: "cannot sync another user"}
	}
	if err := domain.Validate(cmd); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, created, err := s.users.SyncLogin(ctx, domain.NewDonor(ac.Email, cmd.Profile, now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to sync login: %w", err)
	}
	if !created {
		return user, nil
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	event := events.UserRegisteredEvent{
		UserID:     user.ID,
		Email:      user.Email,
		BloodGroup: user.BloodGroup,
		District:   user.District,
		CreatedAt:  user.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.UserRegistered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish user registered event", "error", err, "user_id", user.ID)
	}
	return user, nil
}

func (s *userService) GetStatus(ctx context.Context, email string) (*domain.StatusView, error) {
	u, err := s.find(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	return &domain.StatusView{Status: u.Status}, nil
}

func (s *userService) GetBloodType(ctx context.Context, email string) (*domain.BloodTypeView, error) {
	u, err := s.find(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	return &domain.BloodTypeView{BloodGroup: u.BloodGroup}, nil
}

func (s *userService) GetRole(ctx context.Context, email string) (*domain.RoleView, error) {
	u, err := s.find(ctx, email)
	if err != nil || u == nil {
		return nil, err
	}
	role := u.Role
	return &domain.RoleView{Role: &role}, nil
}

func (s *userService) GetProfile(ctx context.Context, ac domain.AuthContext, email string) (*domain.User, error) {
	if err := requireAuth(ac); err != nil {
		return nil, err
	}
	return s.find(ctx, email)
}

func (s *userService) UpdateProfile(ctx context.Context, ac domain.AuthContext, email string, cmd domain.UpdateProfileCommand) (domain.WriteResult, error) {
	if err := RequireSelf(ac, email); err != nil {
		return domain.WriteResult{}, err
	}
	if err := domain.Validate(cmd); err != nil {
		return domain.WriteResult{}, err
	}
	res, err := s.users.UpdateProfile(ctx, email, cmd.Profile)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return res, nil
}

func (s *userService) ListDonors(ctx context.Context, p query.DonorParams) ([]domain.User, error) {
	donors, err := s.users.Find(ctx, query.Donors(p))
	if err != nil {
		return nil, fmt.Errorf("failed to search donors: %w", err)
	}
	return donors, nil
}

func (s *userService) ListAll(ctx context.Context, ac domain.AuthContext) ([]domain.User, error) {
	if err := RequireRole(ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.Find(ctx, query.AllExcept(ac.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) SetStatus(ctx context.Context, ac domain.AuthContext, id string, status domain.UserStatus) (domain.WriteResult, error) {
	if err := RequireRole(ac, domain.RoleAdmin); err != nil {
		return domain.WriteResult{}, err
	}
	if _, ok := domain.ParseUserStatus(string(status)); !ok {
		return domain.WriteResult{}, fmt.Errorf("%w: unknown user status %q", domain.ErrInvalidInput, status)
	}
	res, err := s.users.SetStatus(ctx, id, status)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to set user status: %w", err)
	}
	if res.ModifiedCount > 0 {
		logger.InfoContext(ctx, "User status changed", "user_id", id, "status", status)
		event := events.UserStatusChangedEvent{UserID: id, Status: string(status), ChangedBy: ac.Email, ChangedAt: s.now().UTC()}
		if err := s.eventBus.Publish(ctx, events.UserStatusChanged, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish user status event", "error", err, "user_id", id)
		}
	}
	return res, nil
}

func (s *userService) SetRole(ctx context.Context, ac domain.AuthContext, id string, role domain.Role) (domain.WriteResult, error) {
	if err := RequireRole(ac, domain.RoleAdmin); err != nil {
		return domain.WriteResult{}, err
	}
	if _, ok := domain.ParseRole(string(role)); !ok {
		return domain.WriteResult{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	res, err := s.users.SetRole(ctx, id, role)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to set user role: %w", err)
	}
	if res.ModifiedCount > 0 {
		logger.InfoContext(ctx, "User role changed", "user_id", id, "role", role)
		event := events.UserRoleChangedEvent{UserID: id, Role: string(role), ChangedBy: ac.Email, ChangedAt: s.now().UTC()}
		if err := s.eventBus.Publish(ctx, events.UserRoleChanged, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish user role event", "error", err, "user_id", id)
		}
	}
	return res, nil
}

func (s *userService) find(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}
