package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by an access token. TokenID doubles as the
// session key in the database.
type Claims struct {
	TokenID   string
	UserID    uint
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's lifetime has fully elapsed.
func (c *Claims) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// InRefreshWindow reports whether the token is in the trailing portion of its
// lifetime where verification mints a replacement.
func (c *Claims) InRefreshWindow(now time.Time, window time.Duration) bool {
	return !c.Expired(now) && now.After(c.ExpiresAt.Add(-window))
}

// TokenCodec signs and verifies HS256 access tokens.
//
// Verify deliberately does not enforce expiry: the session authority owns the
// expiry policy because a token near the end of its life is still good enough
// to mint its own replacement.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Sign issues a token for userID with a fresh unique token ID.
func (tc *TokenCodec) Sign(userID uint, now time.Time) (string, *Claims, error) {
	claims := &Claims{
		TokenID:   uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(tc.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        claims.TokenID,
		Subject:   subjectFromUserID(userID),
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks the signature and extracts the claims. Expired tokens verify
// successfully; callers decide what expiry means.
func (tc *TokenCodec) Verify(tokenString string) (*Claims, error) {
	var registered jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &registered,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidSignature
			}
			return tc.secret, nil
		},
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrInvalidJWT
		}
	}

	userID, err := userIDFromSubject(registered.Subject)
	if err != nil {
		return nil, ErrInvalidJWT
	}
	if registered.ID == "" || registered.IssuedAt == nil || registered.ExpiresAt == nil {
		return nil, ErrInvalidJWT
	}

	return &Claims{
		TokenID:   registered.ID,
		UserID:    userID,
		IssuedAt:  registered.IssuedAt.Time,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
