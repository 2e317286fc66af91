package domain

// SessionState identifies where the session lifecycle currently stands. The
// machine cycles between StateUnauthenticated and StateAuthenticated for the
// life of the process; StateUninitialized is only ever observed before
// Initialize runs.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateRecovering
	StateUnauthenticated
	StateAuthenticated
	StateLoggingOut
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRecovering:
		return "recovering"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// Credentials are the login form inputs.
type Credentials struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// Snapshot is an immutable view of the session delivered to observers on
// every change. The bearer token itself is never exposed here.
type Snapshot struct {
	State           SessionState
	User            *UserProfile
	Role            Role
	IsLoading       bool
	IsAuthenticated bool
}
