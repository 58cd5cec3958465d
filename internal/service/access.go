package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/repo"
)

// AccessGuard turns a verified principal into an AuthContext and answers the
// role and ownership checks. Every check fails closed.
type AccessGuard struct {
	users repo.UserRepository
}

func NewAccessGuard(users repo.UserRepository) *AccessGuard {
	return &AccessGuard{users: users}
}

// Authorize captures the stored role of email. A principal without a user
// record gets an empty role, which no role check accepts.
func (g *AccessGuard) Authorize(ctx context.Context, email string) (domain.AuthContext, error) {
	if email == "" {
		return domain.AuthContext{}, domain.ErrUnauthenticated
	}
	u, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		return domain.AuthContext{}, fmt.Errorf("failed to load caller role: %w", err)
	}
	ac := domain.AuthContext{Email: email}
	if u != nil {
		ac.Role = u.Role
	}
	return ac, nil
}

func RequireRole(ac domain.AuthContext, role domain.Role) error {
	if err := requireAuth(ac); err != nil {
		return err
	}
	if !ac.Is(role) {
		return &domain.AccessError{Email: ac.Email, Role: ac.Role, Reason: "requires role " + string(role)}
	}
	return nil
}

// RequireSelf passes only when email is the verified principal.
func RequireSelf(ac domain.AuthContext, email string) error {
	if err := requireAuth(ac); err != nil {
		return err
	}
	if email != ac.Email {
		return &domain.AccessError{Email: ac.Email, Role: ac.Role, Reason: "not your record"}
	}
	return nil
}

func requireAuth(ac domain.AuthContext) error {
	if !ac.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}
