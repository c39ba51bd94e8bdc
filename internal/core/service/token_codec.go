package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medcore/hospital-gateway/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// tokenClaims is the signed payload: sub carries the username.
type tokenClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes HS256 identity tokens. It holds no state
// besides the secret, so one instance is shared by every request.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec. A nil clock defaults to time.Now.
func NewTokenCodec(secret string, ttl time.Duration, now func() time.Time) *TokenCodec {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: now}
}

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Now reads the codec clock.
func (c *TokenCodec) Now() time.Time { return c.now() }

// Issue signs a token for username valid from now until now+TTL.
func (c *TokenCodec) Issue(username string, role domain.Role, now time.Time) (string, time.Time, error) {
	if username == "" || !role.Valid() {
		return "", time.Time{}, domain.ErrInvalidInput
	}

	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(iat.Add(c.ttl))
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

// Decode verifies the signature before looking at any claim. The token is
// expired once now reaches exp.
func (c *TokenCodec) Decode(token string, now time.Time) (domain.Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)

	var claims tokenClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return domain.Anonymous, classifyTokenError(err)
	}

	if claims.Subject == "" || !claims.Role.Valid() || claims.IssuedAt == nil {
		return domain.Anonymous, &domain.DecodeError{Kind: domain.TokenMalformed}
	}

	return domain.Identity{
		Username:  claims.Subject,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Identify is the soft decode: any rejected token yields the anonymous identity.
func (c *TokenCodec) Identify(token string) domain.Identity {
	if token == "" {
		return domain.Anonymous
	}
	id, err := c.Decode(token, c.now())
	if err != nil {
		return domain.Anonymous
	}
	return id
}

func classifyTokenError(err error) *domain.DecodeError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &domain.DecodeError{Kind: domain.TokenExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &domain.DecodeError{Kind: domain.TokenBadSignature, Err: err}
	default:
		return &domain.DecodeError{Kind: domain.TokenMalformed, Err: err}
	}
}
