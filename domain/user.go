// server/domain/user.go
package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is the part of a user carried inside a session token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
