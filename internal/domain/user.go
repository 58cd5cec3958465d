package domain

import "time"

type Role string

const (
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDonor, RoleVolunteer, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case UserActive, UserBlocked:
		return UserStatus(s), true
	default:
		return "", false
	}
}

// Profile holds the free-form fields a user may edit on their own record.
type Profile struct {
	Name       string `json:"name" validate:"max=120"`
	Avatar     string `json:"avatar" validate:"max=2048"`
	BloodGroup string `json:"bloodGroup" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	District   string `json:"district" validate:"max=120"`
	Upazila    string `json:"upazila" validate:"max=120"`
}

type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Profile
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoggedIn time.Time  `json:"lastLoggedIn"`
}

// NewDonor builds the record created on a user's first login sync.
func NewDonor(email string, p Profile, now time.Time) *User {
	return &User{
		Email:        email,
		Profile:      p,
		Role:         RoleDonor,
		Status:       UserActive,
		CreatedAt:    now,
		LastLoggedIn: now,
	}
}

// SyncLoginCommand is the body of a login sync. Role and status are not part
// of it; a user can never set them on their own record.
type SyncLoginCommand struct {
	Email string `json:"email" validate:"omitempty,email"`
	Profile
}

type UpdateProfileCommand struct {
	Profile
}

// StatusView, BloodTypeView and RoleView are the single-field projections
// served by the public lookups.
type StatusView struct {
	Status UserStatus `json:"status"`
}

type BloodTypeView struct {
	BloodGroup string `json:"bloodGroup"`
}

type RoleView struct {
	Role *Role `json:"role"`
}

type AppStats struct {
	TotalUsers           int64 `json:"totalUsers"`
	TotalDonationRequest int64 `json:"totalDonationRequest"`
}
