package services

import (
	"context"
	"testing"
	"time"

	"founders-chat/config"
	founders_errors "founders-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret"})
	userID := uuid.New()

	token, err := svc.IssueAccessToken(userID)
	require.NoError(t, err)

	got, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseAccessTokenRejects(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret"})
	other := NewAuthService(&config.Config{JWTSecret: "other"})

	foreign, err := other.IssueAccessToken(uuid.New())
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":       "",
		"garbage":     "abc.def.ghi",
		"foreign key": foreign,
		"expired":     expired,
		"bad subject": badSubject,
	} {
		_, err := svc.ParseAccessToken(token)
		assert.ErrorIs(t, err, founders_errors.ErrUnauthorized, name)
	}
}

func TestUserContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	userID := uuid.New()
	got, ok := UserIDFromContext(WithUserContext(context.Background(), userID))
	assert.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestPageSizes(t *testing.T) {
	assert.Equal(t, DefaultChatPageSize, ChatPageSize(0))
	assert.Equal(t, DefaultMessagePageSize, MessagePageSize(-5))
	assert.Equal(t, 7, MessagePageSize(7))
	assert.Equal(t, MaxPageSize, ChatPageSize(MaxPageSize+1))

	_, err := normalizeSkip(-1)
	assert.ErrorIs(t, err, founders_errors.ErrInvalidInput)
}
