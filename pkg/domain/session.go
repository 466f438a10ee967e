package domain

// AuthStatus is the authentication state of the client session.
type AuthStatus int

const (
	// StatusInitializing is the state before the persisted session was read.
	StatusInitializing AuthStatus = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s AuthStatus) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// TokenPair is the body of a successful login response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}
