package domain

import "time"

// Role values a user account can carry.
const (
	RoleBuyer    = "buyer"
	RoleProvider = "provider"
)

// User is the account record returned by the login endpoint and persisted
// with the session.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Role          string     `json:"role"`
	AverageRating *float64   `json:"average_rating,omitempty"`
	ReviewCount   int        `json:"review_count,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Locale        string     `json:"locale,omitempty"`
	DateJoined    *time.Time `json:"date_joined,omitempty"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// IsBuyer reports whether the user posts service requests.
func (u User) IsBuyer() bool { return u.Role == RoleBuyer }

// IsProvider reports whether the user applies to service requests.
func (u User) IsProvider() bool { return u.Role == RoleProvider }

// Registration is the field set sent to the registration endpoint.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}
