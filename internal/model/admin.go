package model

import "time"

// AdminAccount is a dashboard operator. Username and email are each unique
// across the admins table; email is stored lowercased.
//
// PasswordHash is a bcrypt string and is tagged json:"-" so it can never be
// serialized into a response, even by accident.
type AdminAccount struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the token-facing view of the account.
func (a *AdminAccount) Identity() *Identity {
	return &Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
	}
}

// CreateAdminInput is the payload of the admin creation endpoint.
type CreateAdminInput struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginKind says which half of the credential pair the caller supplied.
type LoginKind string

const (
	LoginByUsername LoginKind = "username"
	LoginByEmail    LoginKind = "email"
)

// LoginIdentifier is a username or an email, with the caller declaring
// which.
type LoginIdentifier struct {
	Kind  LoginKind
	Value string
}
