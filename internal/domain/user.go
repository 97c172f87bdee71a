package domain

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName is what pages show for the user; "N/A" when no name was given.
func (u User) DisplayName() string {
	if u.Name == "" {
		return "N/A"
	}
	return u.Name
}

type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// ResetRequest is handed to the reset handler once a token has been minted.
// URL is an opaque, already valid capability string.
type ResetRequest struct {
	User User
	URL  string
}
