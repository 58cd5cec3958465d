package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/diagnosis/bloodcare/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

var published = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bloodcare_events_published_total",
		Help: "Lifecycle events handed to the bus, by subject and result",
	},
	[]string{"subject", "result"},
)

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("bloodcare-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		published.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	if err := n.conn.Publish(subject, payload); err != nil {
		published.WithLabelValues(subject, "error").Inc()
		return err
	}
	published.WithLabelValues(subject, "ok").Inc()
	return nil
}

func (n *NATSEventBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

// Noop drops every event. It stands in when no NATS URL is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, subject string, data interface{}) error {
	published.WithLabelValues(subject, "dropped").Inc()
	return nil
}

func (Noop) Close() error { return nil }

// Event subjects
const (
	DonationRequestCreated       = "donation.request.created"
	DonationRequestCommitted     = "donation.request.committed"
	DonationRequestStatusChanged = "donation.request.status_changed"
	DonationRequestEdited        = "donation.request.edited"
	DonationRequestDeleted       = "donation.request.deleted"

	UserRegistered    = "user.registered"
	UserRoleChanged   = "user.role_changed"
	UserStatusChanged = "user.status_changed"
)

// Event payloads
type DonationRequestCreatedEvent struct {
	RequestID      string    `json:"request_id"`
	RequesterEmail string    `json:"requester_email"`
	BloodGroup     string    `json:"blood_group"`
	District       string    `json:"district"`
	Upazila        string    `json:"upazila"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type DonationRequestCommittedEvent struct {
	RequestID   string    `json:"request_id"`
	DonorEmail  string    `json:"donor_email"`
	DonorName   string    `json:"donor_name"`
	CommittedAt time.Time `json:"committed_at"`
}

type DonationRequestStatusChangedEvent struct {
	RequestID    string    `json:"request_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ChangedBy    string    `json:"changed_by"`
	DonorCleared bool      `json:"donor_cleared"`
	ChangedAt    time.Time `json:"changed_at"`
}

type DonationRequestEditedEvent struct {
	RequestID      string    `json:"request_id"`
	RequesterEmail string    `json:"requester_email"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type DonationRequestDeletedEvent struct {
	RequestID      string    `json:"request_id"`
	RequesterEmail string    `json:"requester_email"`
	DeletedAt      time.Time `json:"deleted_at"`
}

type UserRegisteredEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	BloodGroup string    `json:"blood_group"`
	District   string    `json:"district"`
	CreatedAt  time.Time `json:"created_at"`
}

type UserRoleChangedEvent struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type UserStatusChangedEvent struct {
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
