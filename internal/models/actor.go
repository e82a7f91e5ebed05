package models

// Role is the capability carried by an authenticated caller.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleRider || r == RoleDriver || r == RoleAdmin
}

// Actor is the caller of an operation, resolved once from the bearer token.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (a Actor) IsRider() bool  { return a.Role == RoleRider }
func (a Actor) IsDriver() bool { return a.Role == RoleDriver }
func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }

// CanView reports whether the actor may read a ride or its derived data.
func (a Actor) CanView(r *Ride) bool {
	return a.IsAdmin() || r.IsParticipant(a.UserID)
}
