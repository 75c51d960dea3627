package services

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
	RoleSystem   = "system"
)

// Actor is the caller identity handed in by the transport. The core never
// authenticates it.
type Actor struct {
	ID   string
	Role string
}

// SystemActor is used by the expiry sweep.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin || a.Role == RoleSystem
}

func (a Actor) canActFor(userID string) bool {
	return a.IsStaff() || (a.ID != "" && a.ID == userID)
}
