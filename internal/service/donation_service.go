package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/diagnosis/bloodcare/internal/domain"
	"github.com/diagnosis/bloodcare/internal/query"
	"github.com/diagnosis/bloodcare/internal/repo"
	"github.com/diagnosis/bloodcare/pkg/events"
	"github.com/diagnosis/bloodcare/pkg/logger"
)

var transitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bloodcare_donation_transitions_total",
		Help: "Donation request status changes, by target status",
	},
	[]string{"to"},
)

type DonationService interface {
	Create(ctx context.Context, ac domain.AuthContext, cmd domain.CreateRequestCommand) (domain.WriteResult, error)
	CommitDonor(ctx context.Context, id string, cmd domain.CommitDonorCommand) (domain.WriteResult, error)
	UpdateStatus(ctx context.Context, ac domain.AuthContext, id string, cmd domain.UpdateStatusCommand) (domain.WriteResult, error)
	Edit(ctx context.Context, ac domain.AuthContext, id string, cmd domain.EditRequestCommand) (domain.WriteResult, error)
	Delete(ctx context.Context, ac domain.AuthContext, id, callerEmail string) (domain.WriteResult, error)
	GetByID(ctx context.Context, id string) (*domain.DonationRequest, error)
	ListPublicPending(ctx context.Context) ([]domain.DonationRequest, error)
	ListRequests(ctx context.Context, ac domain.AuthContext, p query.RequestParams) ([]domain.DonationRequest, error)
	ListDonations(ctx context.Context, ac domain.AuthContext, p query.RequestParams) ([]domain.DonationRequest, error)
}

type donationService struct {
	requests repo.DonationRequestRepository
	eventBus events.Publisher
	now      func() time.Time
}

func NewDonationService(requests repo.DonationRequestRepository, eventBus events.Publisher) DonationService {
	return &donationService{
		requests: requests,
		eventBus: eventBus,
		now:      time.Now,
	}
}

func (s *donationService) Create(ctx context.Context, ac domain.AuthContext, cmd domain.CreateRequestCommand) (domain.WriteResult, error) {
	if err := requireAuth(ac); err != nil {
		return domain.WriteResult{}, err
	}
	if err := domain.Validate(cmd); err != nil {
		return domain.WriteResult{}, err
	}

	r := domain.NewDonationRequest(ac.Email, cmd, s.now().UTC())
	if err := r.Validate(); err != nil {
		return domain.WriteResult{}, err
	}
	id, err := s.requests.Insert(ctx, r)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to create donation request: %w", err)
	}
	transitions.WithLabelValues(string(r.DonationStatus)).Inc()
	logger.InfoContext(ctx, "Donation request created", "donation_request_id", id, "status", r.DonationStatus)

	event := events.DonationRequestCreatedEvent{
		RequestID:      id,
		RequesterEmail: r.RequesterEmail,
		BloodGroup:     r.BloodGroup,
		District:       r.RecipientDistrict,
		Upazila:        r.RecipientUpazila,
		Status:         string(r.DonationStatus),
		CreatedAt:      r.CreatedAt,
	}
	s.publish(ctx, events.DonationRequestCreated, event, id)
	return domain.Inserted(id), nil
}

// CommitDonor attaches a donor and moves the request to inprogress whatever
// its current status. It needs no authentication.
func (s *donationService) CommitDonor(ctx context.Context, id string, cmd domain.CommitDonorCommand) (domain.WriteResult, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.WriteResult{}, err
	}
	now := s.now().UTC()
	res, err := s.requests.AssignDonor(ctx, id, cmd.Name, cmd.Email, now)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to commit donor: %w", err)
	}
	if res.MatchedCount == 0 {
		return res, nil
	}
	transitions.WithLabelValues(string(domain.StatusInProgress)).Inc()
	logger.InfoContext(ctx, "Donor committed", "donation_request_id", id)

	event := events.DonationRequestCommittedEvent{RequestID: id, DonorEmail: cmd.Email, DonorName: cmd.Name, CommittedAt: now}
	s.publish(ctx, events.DonationRequestCommitted, event, id)
	return res, nil
}

func (s *donationService) UpdateStatus(ctx context.Context, ac domain.AuthContext, id string, cmd domain.UpdateStatusCommand) (domain.WriteResult, error) {
	if err := requireAuth(ac); err != nil {
		return domain.WriteResult{}, err
	}
	if err := domain.Validate(cmd); err != nil {
		return domain.WriteResult{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.WriteResult{}, err
	}
	clearDonor, err := current.PlanStatusChange(cmd.DonationStatus)
	if err != nil {
		return domain.WriteResult{}, err
	}

	now := s.now().UTC()
	res, err := s.requests.SetStatus(ctx, id, cmd.DonationStatus, clearDonor, now)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to update donation status: %w", err)
	}
	transitions.WithLabelValues(string(cmd.DonationStatus)).Inc()
	logger.InfoContext(ctx, "Donation status changed", "donation_request_id", id,
		"from", current.DonationStatus, "to", cmd.DonationStatus, "donor_cleared", clearDonor)

	event := events.DonationRequestStatusChangedEvent{
		RequestID:    id,
		From:         string(current.DonationStatus),
		To:           string(cmd.DonationStatus),
		ChangedBy:    ac.Email,
		DonorCleared: clearDonor,
		ChangedAt:    now,
	}
	s.publish(ctx, events.DonationRequestStatusChanged, event, id)
	return res, nil
}

// Edit replaces the logistics of a request owned by the caller. Status,
// donor and requester fields are left alone.
func (s *donationService) Edit(ctx context.Context, ac domain.AuthContext, id string, cmd domain.EditRequestCommand) (domain.WriteResult, error) {
	if err := requireAuth(ac); err != nil {
		return domain.WriteResult{}, err
	}
	if err := domain.Validate(cmd); err != nil {
		return domain.WriteResult{}, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return domain.WriteResult{}, err
	}
	if !current.IsRequester(ac.Email) {
		return domain.WriteResult{}, &domain.AccessError{Email: ac.Email, Role: ac.Role, Reason: "only the requester can edit this request"}
	}

	now := s.now().UTC()
	res, err := s.requests.UpdateLogistics(ctx, id, cmd.Logistics, now)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to edit donation request: %w", err)
	}
	event := events.DonationRequestEditedEvent{RequestID: id, RequesterEmail: ac.Email, UpdatedAt: now}
	s.publish(ctx, events.DonationRequestEdited, event, id)
	return res, nil
}

// Delete removes a request owned by the caller. callerEmail must name the
// principal; an unknown id deletes nothing.
func (s *donationService) Delete(ctx context.Context, ac domain.AuthContext, id, callerEmail string) (domain.WriteResult, error) {
	if err := RequireSelf(ac, callerEmail); err != nil {
		return domain.WriteResult{}, err
	}
	current, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to load donation request: %w", err)
	}
	if current == nil {
		return domain.Deleted(0), nil
	}
	if !current.IsRequester(ac.Email) {
		return domain.WriteResult{}, &domain.AccessError{Email: ac.Email, Role: ac.Role, Reason: "only the requester can delete this request"}
	}

	res, err := s.requests.Delete(ctx, id)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("failed to delete donation request: %w", err)
	}
	if res.DeletedCount > 0 {
		logger.InfoContext(ctx, "Donation request deleted", "donation_request_id", id)
		event := events.DonationRequestDeletedEvent{RequestID: id, RequesterEmail: ac.Email, DeletedAt: s.now().UTC()}
		s.publish(ctx, events.DonationRequestDeleted, event, id)
	}
	return res, nil
}

func (s *donationService) GetByID(ctx context.Context, id string) (*domain.DonationRequest, error) {
	r, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load donation request: %w", err)
	}
	return r, nil
}

func (s *donationService) ListPublicPending(ctx context.Context) ([]domain.DonationRequest, error) {
	return s.find(ctx, query.PublicPending())
}

func (s *donationService) ListRequests(ctx context.Context, ac domain.AuthContext, p query.RequestParams) ([]domain.DonationRequest, error) {
	if err := requireAuth(ac); err != nil {
		return nil, err
	}
	return s.find(ctx, query.Requests(p))
}

// ListDonations lists requests a donor committed to. Without a donor email
// there is nothing to list.
func (s *donationService) ListDonations(ctx context.Context, ac domain.AuthContext, p query.RequestParams) ([]domain.DonationRequest, error) {
	if err := requireAuth(ac); err != nil {
		return nil, err
	}
	if p.Email == "" {
		return []domain.DonationRequest{}, nil
	}
	return s.find(ctx, query.Donations(p))
}

func (s *donationService) find(ctx context.Context, pred query.Predicate) ([]domain.DonationRequest, error) {
	out, err := s.requests.Find(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to list donation requests: %w", err)
	}
	return out, nil
}

func (s *donationService) load(ctx context.Context, id string) (*domain.DonationRequest, error) {
	r, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load donation request: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("donation request %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *donationService) publish(ctx context.Context, subject string, event any, id string) {
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish donation request event", "error", err, "subject", subject, "donation_request_id", id)
	}
}
