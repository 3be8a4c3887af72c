package sessions

import "time"

// Session binds a browser client to a signed-in identity.
// ID is the client id carried in the client cookie.
type Session struct {
	ID         string    `bson:"_id" json:"id"`
	IdentityID string    `bson:"identityId" json:"identityId"`
	ExpiresAt  time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}
