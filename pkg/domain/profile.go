package domain

import "encoding/json"

// Amount is a decimal the backend sends either as a JSON string or a number.
// It is kept as text and encoded as a string.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// Availabilities are the values a role profile accepts, default first.
var Availabilities = []string{"full-time", "part-time", "weekends", "project-based"}

// ProfileUser is the account part of a role profile.
type ProfileUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// RoleProfile is the buyer or provider profile behind the settings page.
// The same shape is sent back to update it.
type RoleProfile struct {
	User         ProfileUser `json:"user"`
	Phone        string      `json:"phone"`
	Bio          string      `json:"bio"`
	Location     string      `json:"location"`
	Skills       []string    `json:"skills"`
	Experience   string      `json:"experience"`
	HourlyRate   Amount      `json:"hourly_rate"`
	Availability string      `json:"availability"`
}
