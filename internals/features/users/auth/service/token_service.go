package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret = errors.New("JWT secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// AccessClaims: sub is the numeric account id, role picks the account table.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func IssueAccessToken(secret string, id uint, role string, ttl time.Duration, now time.Time) (IssuedToken, error) {
	if secret == "" {
		return IssuedToken{}, ErrMissingSecret
	}
	exp := now.Add(ttl).UTC()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: claims.ID, ExpiresAt: exp}, nil
}

// ParseAccessToken verifies the signature and checks exp against now with
// the given clock skew.
func ParseAccessToken(secret, raw string, now time.Time, skew time.Duration) (*AccessClaims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	claims := &AccessClaims{}
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: no exp", ErrInvalidToken)
	}
	if now.After(claims.ExpiresAt.Time.Add(skew)) {
		return nil, ErrTokenExpired
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing jti or role", ErrInvalidToken)
	}
	return claims, nil
}

func (c *AccessClaims) AccountID() (uint, error) {
	n, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(n), nil
}
