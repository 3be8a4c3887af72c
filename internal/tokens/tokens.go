package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes, stored in the "typ" claim.
const (
	PurposeVerifyEmail = "verify_email"
	PurposeAccess      = "access"
)

var ErrNoSecret = errors.New("jwt secret not configured")

// GenerateVerificationToken signs an email-verification token for the identity.
func GenerateVerificationToken(secret, identityID, email string, ttl time.Duration) (string, error) {
	return sign(secret, jwt.MapClaims{
		"sub":   identityID,
		"email": email,
		"typ":   PurposeVerifyEmail,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	})
}

// ParseVerificationToken validates a verification token and returns its subject.
func ParseVerificationToken(secret, raw string) (string, error) {
	claims, err := parse(secret, raw)
	if err != nil {
		return "", err
	}
	if claims["typ"] != PurposeVerifyEmail {
		return "", fmt.Errorf("unexpected token purpose %v", claims["typ"])
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// GenerateAccessToken creates a signed JWT access token carrying a role claim.
func GenerateAccessToken(secret, sub, email, role string, ttl time.Duration) (string, error) {
	return sign(secret, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"role":  role,
		"typ":   PurposeAccess,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	})
}

func sign(secret string, claims jwt.MapClaims) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

func parse(secret, raw string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without verifying the signature. It is
// meant for computing how long a revoked token must stay blacklisted.
func ExpiresAt(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("exp claim not present")
	}
	return exp.Time, nil
}
