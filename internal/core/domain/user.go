package domain

// Account statuses as reported by the backend profile endpoint.
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
)

// RoleAssignment is a single role granted to a user. Role names are compared
// as a set; list order carries no meaning.
type RoleAssignment struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// UserProfile models the authenticated user as delivered by the backend.
// Profiles are replaced wholesale on every refresh, never mutated field by
// field.
type UserProfile struct {
	ID              string           `json:"id"`
	FullName        string           `json:"full_name"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone,omitempty"`
	Address         string           `json:"address,omitempty"`
	NationalID      string           `json:"national_id,omitempty"`
	BirthDate       string           `json:"birth_date,omitempty"` // ISO 8601 date
	Status          string           `json:"status"`
	Roles           []RoleAssignment `json:"roles"`
	LinkedAccountID string           `json:"linked_account_id,omitempty"`
}

// IsActive reports whether the account may hold an authenticated session.
func (p *UserProfile) IsActive() bool {
	return p != nil && p.Status == StatusActive
}
