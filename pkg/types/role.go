package types

type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSubscriber, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID      string `json:"user_id"`
	Role        Role   `json:"role"`
	IsSuperUser bool   `json:"is_super_user"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
