package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmanager_backend/internals/constants"
	"callmanager_backend/internals/features/users/auth/service"
)

const secret = "test-secret"

var issuedAt = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func TestAccessToken_IssueAndParse(t *testing.T) {
	t.Parallel()

	tok, err := service.IssueAccessToken(secret, 42, constants.RoleAdmin, time.Hour, issuedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.JTI)
	assert.Equal(t, issuedAt.Add(time.Hour), tok.ExpiresAt)

	claims, err := service.ParseAccessToken(secret, tok.Token, issuedAt.Add(10*time.Minute), 30*time.Second)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, constants.RoleAdmin, claims.Role)
	assert.Equal(t, tok.JTI, claims.ID)
}

func TestAccessToken_EveryTokenHasItsOwnJTI(t *testing.T) {
	t.Parallel()

	a, err := service.IssueAccessToken(secret, 1, constants.RoleUser, time.Hour, issuedAt)
	require.NoError(t, err)
	b, err := service.IssueAccessToken(secret, 1, constants.RoleUser, time.Hour, issuedAt)
	require.NoError(t, err)
	assert.NotEqual(t, a.JTI, b.JTI)
}

func TestAccessToken_Expiry(t *testing.T) {
	t.Parallel()

	tok, err := service.IssueAccessToken(secret, 1, constants.RoleUser, time.Hour, issuedAt)
	require.NoError(t, err)

	_, err = service.ParseAccessToken(secret, tok.Token, issuedAt.Add(time.Hour+20*time.Second), 30*time.Second)
	assert.NoError(t, err, "inside the skew")

	_, err = service.ParseAccessToken(secret, tok.Token, issuedAt.Add(time.Hour+time.Minute), 30*time.Second)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestAccessToken_Rejections(t *testing.T) {
	t.Parallel()

	tok, err := service.IssueAccessToken(secret, 1, constants.RoleUser, time.Hour, issuedAt)
	require.NoError(t, err)

	_, err = service.ParseAccessToken("other-secret", tok.Token, issuedAt, 0)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = service.ParseAccessToken("", tok.Token, issuedAt, 0)
	assert.ErrorIs(t, err, service.ErrMissingSecret)

	_, err = service.ParseAccessToken(secret, "not.a.jwt", issuedAt, 0)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "role": "admin", "jti": "x", "exp": issuedAt.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = service.ParseAccessToken(secret, unsigned, issuedAt, 0)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin", "jti": "x", "exp": issuedAt.Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = service.ParseAccessToken(secret, noSubject, issuedAt, 0)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := service.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, service.CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, service.CheckPassword(hash, "wrong"), service.ErrBadCredentials)
}
