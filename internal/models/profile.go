package models

import (
	"strings"
	"time"
)

// Profile is the application's extended user record, 1:1 with an Identity.
type Profile struct {
	ID             string    `bson:"_id" json:"id"`
	UserID         string    `bson:"userId" json:"user_id"`
	Email          string    `bson:"email" json:"email"`
	FullName       string    `bson:"fullName" json:"full_name"`
	RollNumber     string    `bson:"rollNumber" json:"roll_number"`
	Branch         string    `bson:"branch" json:"branch"`
	Year           string    `bson:"year" json:"year"`
	Hostel         string    `bson:"hostel" json:"hostel"`
	Bio            string    `bson:"bio,omitempty" json:"bio,omitempty"`
	Phone          string    `bson:"phone,omitempty" json:"phone,omitempty"`
	AvatarURL      string    `bson:"avatarUrl,omitempty" json:"avatar_url,omitempty"`
	SellerVerified bool      `bson:"sellerVerified" json:"seller_verified"`
	IsActive       bool      `bson:"isActive" json:"is_active"`
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updated_at"`
}

// IsComplete reports whether the five required fields are all non-blank.
// A nil profile is never complete.
func (p *Profile) IsComplete() bool {
	if p == nil {
		return false
	}
	for _, v := range []string{p.FullName, p.RollNumber, p.Branch, p.Year, p.Hostel} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ProfileFields is a partial profile update. Nil pointers leave the stored
// value untouched.
type ProfileFields struct {
	FullName   *string `json:"full_name,omitempty"`
	RollNumber *string `json:"roll_number,omitempty"`
	Branch     *string `json:"branch,omitempty"`
	Year       *string `json:"year,omitempty"`
	Hostel     *string `json:"hostel,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

// Empty reports whether no field is set.
func (f ProfileFields) Empty() bool {
	return f.FullName == nil && f.RollNumber == nil && f.Branch == nil && f.Year == nil &&
		f.Hostel == nil && f.Bio == nil && f.Phone == nil && f.AvatarURL == nil
}

// ApplyTo merges the set fields into p.
func (f ProfileFields) ApplyTo(p *Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FullName, f.FullName)
	set(&p.RollNumber, f.RollNumber)
	set(&p.Branch, f.Branch)
	set(&p.Year, f.Year)
	set(&p.Hostel, f.Hostel)
	set(&p.Bio, f.Bio)
	set(&p.Phone, f.Phone)
	set(&p.AvatarURL, f.AvatarURL)
}

// ProfileFlags are the administrative switches on a profile.
type ProfileFlags struct {
	SellerVerified *bool `json:"seller_verified,omitempty"`
	IsActive       *bool `json:"is_active,omitempty"`
}

// Clone returns a copy of p (nil-safe).
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
