package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/repo"
)

type StatsService interface {
	Stats(ctx context.Context, ac domain.AuthContext) (domain.AppStats, error)
}

type statsService struct {
	users    repo.UserRepository
	requests repo.DonationRequestRepository
}

func NewStatsService(users repo.UserRepository, requests repo.DonationRequestRepository) StatsService {
	return &statsService{users: users, requests: requests}
}

func (s *statsService) Stats(ctx context.Context, ac domain.AuthContext) (domain.AppStats, error) {
	if err := requireAuth(ac); err != nil {
		return domain.AppStats{}, err
	}

	var stats domain.AppStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.requests.Count(gctx)
		stats.TotalDonationRequest = n
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AppStats{}, fmt.Errorf("failed to count records: %w", err)
	}
	return stats, nil
}
