// Package credential decodes the claims carried by a Terrain bearer token.
//
// The token signature is NOT verified. This is not a security check: the
// client only ever looks at tokens it has just received from the identity
// provider over TLS or read back from its own owner-only cache file, and no
// verification key is distributed to the client. Never use this package to
// decide whether to trust a token supplied by someone else.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token is present but cannot be decoded.
var ErrMalformed = errors.New("malformed credential")

// Claims are the token claims the client cares about.
type Claims struct {
	jwt.RegisteredClaims

	// PreferredUsername is the Keycloak username, which is the identifier
	// the QMS endpoints and the subject search use.
	PreferredUsername string `json:"preferred_username,omitempty"`
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeClaims extracts the claims from token. An empty token, or one with
// fewer than two segments, is "no credential" and yields (nil, nil).
func DecodeClaims(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || !strings.Contains(token, ".") {
		return nil, nil
	}

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		// An unknown signing algorithm doesn't matter here, the claims
		// have been decoded by the time it is reported.
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// ValidAt reports whether token's validity window contains now. Absent or
// undecodable tokens are never valid. A missing nbf or exp leaves that side
// of the window open.
func ValidAt(token string, now time.Time) bool {
	claims, err := DecodeClaims(token)
	if err != nil || claims == nil {
		return false
	}
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return false
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// IsCurrentlyValid is ValidAt for the current time.
func IsCurrentlyValid(token string) bool {
	return ValidAt(token, time.Now())
}

// Subject returns the username the token was issued to.
func Subject(token string) (string, bool) {
	claims, err := DecodeClaims(token)
	if err != nil || claims == nil || claims.PreferredUsername == "" {
		return "", false
	}
	return claims.PreferredUsername, true
}

// ExpiresAt returns the token's expiry, if it has one.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := DecodeClaims(token)
	if err != nil || claims == nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
