package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"budgetly/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer = "budgetly-api"
	// TokenTTL is fixed; there is no refresh.
	TokenTTL = time.Hour

	MinSecretLength = 32
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength)
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of t that reads the time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	return &Tokens{secret: t.secret, now: now}
}

// Issue signs a token for u valid for TokenTTL.
func (t *Tokens) Issue(u core.User) (string, error) {
	if u.ID == "" {
		return "", errors.New("issue token: empty user id")
	}
	now := t.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// caller it identifies.
func (t *Tokens) Verify(token string) (core.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return core.Principal{}, errors.New("token is empty")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return core.Principal{}, err
	}
	if !parsed.Valid {
		return core.Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return core.Principal{}, errors.New("invalid token subject")
	}

	role := claims.Role
	if role == "" {
		role = core.RoleUser
	}
	return core.Principal{UserID: claims.Subject, Role: role}, nil
}
