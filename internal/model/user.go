package model

import (
	"time"
)

// User is a patient account. The JSON tags describe the persisted form
// (users.json); API responses go through Public.
type User struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Email              string    `json:"email" db:"email"`
	Phone              string    `json:"phone" db:"phone"`
	Picture            string    `json:"picture" db:"picture"`
	IdentityProviderID *string   `json:"googleId,omitempty" db:"google_id"`     // Nullable until linked to Google
	PasswordHash       *string   `json:"password,omitempty" db:"password_hash"` // Legacy, removed on linking
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}

// PublicUser is the only shape of a user that leaves the server.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Picture   string    `json:"picture"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) IsLinked() bool {
	return u.IdentityProviderID != nil && *u.IdentityProviderID != ""
}

// LinkIdentity attaches the provider subject, refreshes the avatar and drops
// any legacy password. An empty picture keeps the stored one.
func (u *User) LinkIdentity(subject, picture string) {
	u.IdentityProviderID = &subject
	if picture != "" {
		u.Picture = picture
	}
	u.PasswordHash = nil
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Picture:   u.Picture,
		CreatedAt: u.CreatedAt,
	}
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (u *User) Clone() *User {
	c := *u
	if u.IdentityProviderID != nil {
		id := *u.IdentityProviderID
		c.IdentityProviderID = &id
	}
	if u.PasswordHash != nil {
		hash := *u.PasswordHash
		c.PasswordHash = &hash
	}
	return &c
}
