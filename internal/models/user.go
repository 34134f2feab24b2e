package models

import "time"

// User is the profile kept alongside the external auth account.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"display_name"`
	ShareCode        string    `json:"share_code"`
	SharedPortfolios []string  `json:"shared_portfolios"` // share codes this user has joined
	CreatedAt        time.Time `json:"created_at"`
}

// PublicName is the name shown to viewers of a shared portfolio.
func (u *User) PublicName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// HasJoined reports whether the user already follows the share code.
func (u *User) HasJoined(code string) bool {
	for _, c := range u.SharedPortfolios {
		if c == code {
			return true
		}
	}
	return false
}
