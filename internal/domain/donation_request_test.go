package domain

import (
	"errors"
	"testing"
	"time"
)

func validLogistics() Logistics {
	return Logistics{
		RecipientName:     "Rahim",
		RecipientDistrict: "Dhaka",
		RecipientUpazila:  "Savar",
		HospitalName:      "Enam Medical",
		FullAddress:       "Savar, Dhaka",
		BloodGroup:        "A-",
		DonationDate:      "2024-03-10",
		DonationTime:      "10:00",
	}
}

func TestNewDonationRequest_InitialState(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r := NewDonationRequest("a@x.com", CreateRequestCommand{Logistics: validLogistics()}, now)
	if r.DonationStatus != StatusPending || r.DonorEmail != nil {
		t.Fatalf("want pending without donor, got %s %v", r.DonationStatus, r.DonorEmail)
	}
	if !r.CreatedAt.Equal(now) || !r.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not stamped")
	}

	r = NewDonationRequest("a@x.com", CreateRequestCommand{Logistics: validLogistics(), DonorName: "B", DonorEmail: "b@x.com"}, now)
	if r.DonationStatus != StatusInProgress || !r.HasDonor() {
		t.Fatalf("want inprogress with donor, got %s", r.DonationStatus)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestPlanStatusChange(t *testing.T) {
	donor := "b@x.com"
	withDonor := &DonationRequest{ID: "1", DonorEmail: &donor, DonationStatus: StatusInProgress}
	without := &DonationRequest{ID: "2", DonationStatus: StatusPending}

	tests := []struct {
		name      string
		r         *DonationRequest
		to        DonationStatus
		wantClear bool
		wantErr   error
	}{
		{"pending clears donor", withDonor, StatusPending, true, nil},
		{"pending without donor", without, StatusPending, false, nil},
		{"inprogress needs donor", without, StatusInProgress, false, ErrInvalidTransition},
		{"inprogress with donor", withDonor, StatusInProgress, false, nil},
		{"done keeps donor", withDonor, StatusDone, false, nil},
		{"canceled from pending", without, StatusCanceled, false, nil},
		{"unknown status", withDonor, DonationStatus("lost"), false, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClear, err := tt.r.PlanStatusChange(tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if gotClear != tt.wantClear {
				t.Fatalf("clear = %v, want %v", gotClear, tt.wantClear)
			}
		})
	}
}

func TestValidate_CommandTags(t *testing.T) {
	if err := Validate(CommitDonorCommand{Name: "B", Email: "not-an-email"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want invalid input, got %v", err)
	}
	l := validLogistics()
	l.BloodGroup = "C+"
	if err := Validate(EditRequestCommand{Logistics: l}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want invalid blood group rejected, got %v", err)
	}
	if err := Validate(EditRequestCommand{Logistics: validLogistics()}); err != nil {
		t.Fatalf("valid edit rejected: %v", err)
	}
}

func TestAccessError_UnwrapsToForbidden(t *testing.T) {
	var err error = &AccessError{Email: "a@x.com", Role: RoleDonor, Reason: "requires role admin"}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("AccessError should match ErrForbidden")
	}
}
