package query

import (
	"net/url"
	"strings"

	"github.com/diagnosis/bloodcare/internal/domain"
)

// AllBloodGroups is the sentinel that disables the blood-group clause.
const AllBloodGroups = "all"

type DonorParams struct {
	Blood       string `url:"blood,omitempty"`
	District    string `url:"district,omitempty"`
	Upazila     string `url:"upazila,omitempty"`
	CurrentUser string `url:"currentUser,omitempty"`
}

type RequestParams struct {
	Email        string `url:"email,omitempty"`
	StatusFilter string `url:"statusFilter,omitempty"`
}

func DonorParamsFrom(v url.Values) DonorParams {
	return DonorParams{
		Blood:       strings.TrimSpace(v.Get("blood")),
		District:    strings.TrimSpace(v.Get("district")),
		Upazila:     strings.TrimSpace(v.Get("upazila")),
		CurrentUser: strings.TrimSpace(v.Get("currentUser")),
	}
}

func RequestParamsFrom(v url.Values) RequestParams {
	return RequestParams{
		Email:        strings.TrimSpace(v.Get("email")),
		StatusFilter: strings.TrimSpace(v.Get("statusFilter")),
	}
}

// Donors always restricts to the donor role and layers the optional
// location and blood-group clauses on top.
func Donors(p DonorParams) Predicate {
	var pred Predicate
	if p.Blood != AllBloodGroups {
		pred = pred.WhereIf(FieldBloodGroup, p.Blood)
	}
	pred = pred.WhereIf(FieldDistrict, p.District).
		WhereIf(FieldUpazila, p.Upazila)
	if p.CurrentUser != "" {
		pred = pred.WhereNot(FieldEmail, p.CurrentUser)
	}
	return pred.Where(FieldRole, string(domain.RoleDonor))
}

// Requests filters donation requests by the requester email and status.
// Only the combined filter is ordered newest first; with neither parameter
// the predicate matches the whole collection.
func Requests(p RequestParams) Predicate {
	return layered(FieldRequesterEmail, p)
}

// Donations is Requests keyed on the committed donor instead of the requester.
func Donations(p RequestParams) Predicate {
	return layered(FieldDonorEmail, p)
}

func layered(emailField string, p RequestParams) Predicate {
	pred := Predicate{}.
		WhereIf(emailField, p.Email).
		WhereIf(FieldDonationStatus, p.StatusFilter)
	if p.Email != "" && p.StatusFilter != "" {
		pred = pred.OrderBy(FieldCreatedAt, true)
	}
	return pred
}

// PublicPending matches every request still waiting for a donor.
func PublicPending() Predicate {
	return Predicate{}.Where(FieldDonationStatus, string(domain.StatusPending))
}

// AllExcept matches every record whose email differs from email.
func AllExcept(email string) Predicate {
	if email == "" {
		return Predicate{}
	}
	return Predicate{}.WhereNot(FieldEmail, email)
}
