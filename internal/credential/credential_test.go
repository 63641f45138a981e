package credential_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyverse-de/terrain-cli/internal/credential"
	"github.com/cyverse-de/terrain-cli/internal/credential/credentialtest"
)

func TestDecodeClaims(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		for _, token := range []string{"", "   ", "nodots"} {
			claims, err := credential.DecodeClaims(token)
			require.NoError(t, err)
			require.Nil(t, claims)
		}
	})

	t.Run("well formed", func(t *testing.T) {
		token := credentialtest.Valid(t, "alice")
		claims, err := credential.DecodeClaims(token)
		require.NoError(t, err)
		require.NotNil(t, claims)
		require.Equal(t, "alice", claims.PreferredUsername)
		require.NotNil(t, claims.ExpiresAt)
	})

	t.Run("trailing newline", func(t *testing.T) {
		claims, err := credential.DecodeClaims(credentialtest.Valid(t, "alice") + "\n")
		require.NoError(t, err)
		require.Equal(t, "alice", claims.PreferredUsername)
	})

	t.Run("padded payload", func(t *testing.T) {
		header := base64.URLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
		payload := base64.URLEncoding.EncodeToString([]byte(`{"preferred_username":"bob"}`))
		claims, err := credential.DecodeClaims(header + "." + payload + ".")
		require.NoError(t, err)
		require.Equal(t, "bob", claims.PreferredUsername)
	})

	t.Run("unknown algorithm still decodes", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XX999"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"preferred_username":"carol"}`))
		claims, err := credential.DecodeClaims(header + "." + payload + ".sig")
		require.NoError(t, err)
		require.Equal(t, "carol", claims.PreferredUsername)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := credential.DecodeClaims("aaa.!!!not-base64!!!.ccc")
		require.ErrorIs(t, err, credential.ErrMalformed)
	})

	t.Run("two segments", func(t *testing.T) {
		_, err := credential.DecodeClaims("aaa.bbb")
		require.ErrorIs(t, err, credential.ErrMalformed)
	})
}

func TestValidAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		notBefore time.Time
		expires   time.Time
		want      bool
	}{
		{"inside window", now.Add(-time.Minute), now.Add(time.Minute), true},
		{"premature", now.Add(time.Minute), now.Add(time.Hour), false},
		{"expired", now.Add(-time.Hour), now.Add(-time.Minute), false},
		{"no bounds", time.Time{}, time.Time{}, true},
		{"only expiry", time.Time{}, now.Add(time.Minute), true},
		{"only not before", now.Add(-time.Minute), time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := credentialtest.Token(t, "alice", tt.notBefore, tt.expires)
			require.Equal(t, tt.want, credential.ValidAt(token, now))
		})
	}

	t.Run("absent", func(t *testing.T) {
		require.False(t, credential.IsCurrentlyValid(""))
	})

	t.Run("malformed", func(t *testing.T) {
		require.False(t, credential.IsCurrentlyValid("aaa.!!!.ccc"))
	})
}

func TestSubject(t *testing.T) {
	subject, ok := credential.Subject(credentialtest.Valid(t, "alice"))
	require.True(t, ok)
	require.Equal(t, "alice", subject)

	_, ok = credential.Subject("")
	require.False(t, ok)

	_, ok = credential.Subject(credentialtest.Valid(t, ""))
	require.False(t, ok)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := credential.ExpiresAt(credentialtest.Token(t, "alice", time.Time{}, exp))
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	_, ok = credential.ExpiresAt(credentialtest.Token(t, "alice", time.Time{}, time.Time{}))
	require.False(t, ok)
}
