package model

import "time"

// Account is a user account held by the identity provider. The portal never
// owns these records; it only creates, lists and deletes them through the
// provider.
type Account struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Disabled      bool       `json:"disabled"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastSignInAt  *time.Time `json:"lastSignInAt,omitempty"`
}

// AccountWithRole is an Account annotated with its privilege status for the
// admin user listing.
type AccountWithRole struct {
	Account
	IsAdmin bool `json:"isAdmin"`
}

// Admin is a privilege record. Its presence under a UID is the whole of the
// privilege; there are no roles or scopes. Rows are provisioned out of band
// (see cmd/grant-admin).
type Admin struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}
