package domain

import "time"

// User is an account owner. ID is the subject issued by the identity provider.
type User struct {
	ID        string
	Email     string
	Name      string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name to greet the user with.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Identity is the verified caller supplied by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
}
