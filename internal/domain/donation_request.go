package domain

import (
	"fmt"
	"time"
)

type DonationStatus string

const (
	StatusPending    DonationStatus = "pending"
	StatusInProgress DonationStatus = "inprogress"
	StatusDone       DonationStatus = "done"
	StatusCanceled   DonationStatus = "canceled"
)

func ParseDonationStatus(s string) (DonationStatus, bool) {
	switch DonationStatus(s) {
	case StatusPending, StatusInProgress, StatusDone, StatusCanceled:
		return DonationStatus(s), true
	default:
		return "", false
	}
}

// Logistics are the recipient fields owned by the requester. The edit action
// overwrites all of them at once.
type Logistics struct {
	RecipientName     string `json:"recipientName" validate:"required,max=120"`
	RecipientDistrict string `json:"recipientDistrict" validate:"required,max=120"`
	RecipientUpazila  string `json:"recipientUpazila" validate:"required,max=120"`
	HospitalName      string `json:"hospitalName" validate:"required,max=200"`
	FullAddress       string `json:"fullAddress" validate:"required,max=500"`
	BloodGroup        string `json:"bloodGroup" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	DonationDate      string `json:"donationDate" validate:"required,max=40"`
	DonationTime      string `json:"donationTime" validate:"required,max=40"`
	RequestMessage    string `json:"requestMessage" validate:"max=2000"`
}

type DonationRequest struct {
	ID             string `json:"_id"`
	RequesterName  string `json:"requesterName"`
	RequesterEmail string `json:"requesterEmail"`
	Logistics
	DonorName      *string        `json:"donorName"`
	DonorEmail     *string        `json:"donorEmail"`
	DonationStatus DonationStatus `json:"donationStatus"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type CreateRequestCommand struct {
	RequesterName string `json:"requesterName" validate:"max=120"`
	Logistics
	DonorName  string `json:"donorName" validate:"max=120"`
	DonorEmail string `json:"donorEmail" validate:"omitempty,email"`
}

type CommitDonorCommand struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
}

type UpdateStatusCommand struct {
	DonationStatus DonationStatus `json:"donationStatus" validate:"required,oneof=pending inprogress done canceled"`
}

type EditRequestCommand struct {
	Logistics
}

// NewDonationRequest applies the initial-state rule: a request created with a
// donor already attached starts in progress, otherwise it is pending.
func NewDonationRequest(requesterEmail string, cmd CreateRequestCommand, now time.Time) *DonationRequest {
	r := &DonationRequest{
		RequesterName:  cmd.RequesterName,
		RequesterEmail: requesterEmail,
		Logistics:      cmd.Logistics,
		DonationStatus: StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cmd.DonorEmail != "" {
		name, email := cmd.DonorName, cmd.DonorEmail
		r.DonorName = &name
		r.DonorEmail = &email
		r.DonationStatus = StatusInProgress
	}
	return r
}

// IsRequester reports whether email is the requester. Emails compare exactly
// as stored.
func (r *DonationRequest) IsRequester(email string) bool {
	return email != "" && r.RequesterEmail == email
}

func (r *DonationRequest) HasDonor() bool {
	return r.DonorEmail != nil && *r.DonorEmail != ""
}

// Validate checks the donor/status invariants.
func (r *DonationRequest) Validate() error {
	switch r.DonationStatus {
	case StatusInProgress:
		if !r.HasDonor() {
			return fmt.Errorf("%w: inprogress request without donor", ErrInvalidTransition)
		}
	case StatusPending:
		if r.DonorEmail != nil {
			return fmt.Errorf("%w: pending request with donor", ErrInvalidTransition)
		}
	}
	return nil
}

// PlanStatusChange decides how an explicit status update applies to r.
// Reverting to pending detaches the donor; moving to inprogress needs one.
// Done and canceled are not terminal: any listed status may follow them.
func (r *DonationRequest) PlanStatusChange(to DonationStatus) (clearDonor bool, err error) {
	if _, ok := ParseDonationStatus(string(to)); !ok {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	switch to {
	case StatusPending:
		return r.DonorEmail != nil, nil
	case StatusInProgress:
		if !r.HasDonor() {
			return false, fmt.Errorf("%w: no donor has committed to request %s", ErrInvalidTransition, r.ID)
		}
	}
	return false, nil
}
