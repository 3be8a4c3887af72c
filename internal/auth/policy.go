package auth

import (
	"strings"
	"unicode/utf8"
)

// DomainPolicy decides which emails may sign up or sign in.
type DomainPolicy struct {
	// Domain without the leading "@", e.g. "dtu.ac.in".
	Domain string
	// Allowed lists addresses that bypass the domain check.
	Allowed []string
}

// NewDomainPolicy normalizes the domain and allow-list.
func NewDomainPolicy(domain string, allowed ...string) DomainPolicy {
	p := DomainPolicy{Domain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))}
	for _, a := range allowed {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			p.Allowed = append(p.Allowed, a)
		}
	}
	return p
}

// Allows reports whether email ends with "@<domain>" or is on the allow-list.
func (p DomainPolicy) Allows(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	for _, a := range p.Allowed {
		if e == a {
			return true
		}
	}
	if p.Domain == "" {
		return false
	}
	return len(e) > len(p.Domain)+1 && strings.HasSuffix(e, "@"+p.Domain)
}

// DomainError is the local error for an email outside the policy.
func (p DomainPolicy) DomainError() *Error {
	return newError(InvalidEmailDomain, "Please use your @"+p.Domain+" email")
}

// Credentials is the submitted credential form.
type Credentials struct {
	Email    string
	Password string
	Confirm  string
}

// Validator runs the client-side checks that gate a credential submission.
type Validator struct {
	Policy            DomainPolicy
	MinPasswordLength int
}

// Validate returns the first failing check, in the order email, password
// length, confirmation (sign-up only).
func (v Validator) Validate(c Credentials, signup bool) *Error {
	if !v.Policy.Allows(c.Email) {
		return v.Policy.DomainError()
	}
	min := v.MinPasswordLength
	if min <= 0 {
		min = 6
	}
	if utf8.RuneCountInString(c.Password) < min {
		return errPasswordTooShort(min)
	}
	if signup && c.Password != c.Confirm {
		return newError(PasswordMismatch, "Passwords do not match")
	}
	return nil
}
