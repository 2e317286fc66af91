package domain

// Role is the coarse authorization category derived from a profile's role
// names. RoleAdmin outranks RoleCustomer when a profile carries both.
type Role int

const (
	RoleNone Role = iota
	RoleCustomer
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleCustomer:
		return "customer"
	default:
		return "none"
	}
}

// Role names accepted from the backend. The customer role appears under two
// names depending on the backend deployment's locale.
const (
	RoleNameAdmin    = "ADMIN"
	RoleNameCustomer = "CUSTOMER"
	RoleNameCliente  = "CLIENTE"
)

// ResolveRole derives the navigation role from a profile. It is pure and
// total: a nil profile, an empty role list, and unrecognized role names all
// yield RoleNone.
func ResolveRole(profile *UserProfile) Role {
	if profile == nil {
		return RoleNone
	}
	role := RoleNone
	for _, assignment := range profile.Roles {
		switch assignment.Name {
		case RoleNameAdmin:
			return RoleAdmin
		case RoleNameCustomer, RoleNameCliente:
			role = RoleCustomer
		}
	}
	return role
}
