package models

import "time"

// Identity is the identity provider's user record.
type Identity struct {
	ID            string     `bson:"_id" json:"id"`
	Email         string     `bson:"email" json:"email"`
	EmailVerified bool       `bson:"emailVerified" json:"email_verified"`
	PasswordHash  string     `bson:"passwordHash" json:"-"`
	ConfirmedAt   *time.Time `bson:"confirmedAt,omitempty" json:"confirmed_at,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updated_at"`
}

// Public returns a copy without credential material.
func (i *Identity) Public() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	cp.PasswordHash = ""
	return &cp
}
