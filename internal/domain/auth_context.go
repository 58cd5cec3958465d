package domain

// AuthContext is the verified caller of an action: the principal email from
// the identity provider and the role stored for it. Role is empty when the
// principal has no user record yet.
type AuthContext struct {
	Email string
	Role  Role
}

func (a AuthContext) Authenticated() bool {
	return a.Email != ""
}

func (a AuthContext) Is(role Role) bool {
	return a.Role == role
}
