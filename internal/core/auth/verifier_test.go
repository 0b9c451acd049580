package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret", "recipe-parser")

	token, err := v.Issue("user-42", time.Hour)
	require.NoError(t, err)

	s, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", s.UserID)
	assert.Equal(t, token, s.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, 5*time.Second)
}

func TestVerifierExpired(t *testing.T) {
	v := NewVerifier("test-secret", "")

	token, err := v.Issue("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("test-secret", "recipe-parser")

	wrongSecret, err := NewVerifier("other-secret", "recipe-parser").Issue("user-42", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewVerifier("test-secret", "someone-else").Issue("user-42", time.Hour)
	require.NoError(t, err)

	noSubject, err := v.Issue("", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-42",
		Issuer:  "recipe-parser",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestProviders(t *testing.T) {
	ctx := context.Background()

	_, err := ContextProvider{}.CurrentSession(ctx)
	assert.ErrorIs(t, err, ErrMissingSession)

	got, err := ContextProvider{}.CurrentSession(WithSession(ctx, Session{UserID: "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = ContextProvider{}.CurrentSession(WithSessionError(ctx, ErrSessionExpired))
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = StaticProvider{}.CurrentSession(ctx)
	assert.ErrorIs(t, err, ErrMissingSession)

	got, err = StaticProvider{Session: Session{UserID: "cli"}}.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cli", got.UserID)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
