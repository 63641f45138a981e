// Package credentialtest mints unsigned-for-real tokens for tests.
package credentialtest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cyverse-de/terrain-cli/internal/credential"
)

var signingKey = []byte("credentialtest")

// Token returns an HS256 token for username valid from notBefore to expires.
// Zero times leave the matching claim unset.
func Token(t testing.TB, username string, notBefore, expires time.Time) string {
	t.Helper()

	claims := credential.Claims{PreferredUsername: username}
	claims.Subject = "0d4c6f3e-" + username
	if !notBefore.IsZero() {
		claims.NotBefore = jwt.NewNumericDate(notBefore)
	}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Valid returns a token for username that is valid for the next hour.
func Valid(t testing.TB, username string) string {
	t.Helper()
	now := time.Now()
	return Token(t, username, now.Add(-time.Minute), now.Add(time.Hour))
}

// Expired returns a token for username that expired a minute ago.
func Expired(t testing.TB, username string) string {
	t.Helper()
	now := time.Now()
	return Token(t, username, now.Add(-time.Hour), now.Add(-time.Minute))
}
