// Package identity turns an Authorization header into a verified principal
// email. It has no side effects; role lookup happens in the access guard.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diagnosis/bloodcare/internal/domain"
)

// Verifier checks a raw bearer token and returns the email claim it carries.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

type Resolver struct {
	verifier Verifier
}

func NewResolver(v Verifier) *Resolver {
	return &Resolver{verifier: v}
}

var errNoEmail = errors.New("token carries no email claim")

// Resolve fails fast on a missing or malformed header. Verification errors
// are wrapped in domain.ErrUnauthenticated and keep the verifier's message.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (string, error) {
	if authorization == "" {
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
	}
	scheme, token, ok := strings.Cut(authorization, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("%w: expected a bearer credential", domain.ErrUnauthenticated)
	}

	email, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if email == "" {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, errNoEmail)
	}
	return email, nil
}
