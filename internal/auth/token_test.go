package auth

import (
	"strings"
	"testing"
	"time"

	"budgetly/internal/core"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokensSecretLength(t *testing.T) {
	cases := []struct {
		secret string
		ok     bool
	}{
		{"", false},
		{"short", false},
		{strings.Repeat("x", 31), false},
		{strings.Repeat("x", 32), true},
	}
	for _, tc := range cases {
		_, err := NewTokens(tc.secret)
		if (err == nil) != tc.ok {
			t.Fatalf("NewTokens(len=%d) err=%v, want ok=%v", len(tc.secret), err, tc.ok)
		}
	}
}

func TestIssueVerify(t *testing.T) {
	tokens, err := NewTokens(testSecret)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	tok, err := tokens.Issue(core.User{ID: "user-1", Role: "admin"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := tokens.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != "user-1" || p.Role != "admin" {
		t.Fatalf("principal = %+v", p)
	}
}

func TestVerifyExpiry(t *testing.T) {
	base, _ := NewTokens(testSecret)
	issuedAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tok, err := base.WithClock(fixedClock(issuedAt)).Issue(core.User{ID: "u", Role: core.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := base.WithClock(fixedClock(issuedAt.Add(59 * time.Minute))).Verify(tok); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}
	if _, err := base.WithClock(fixedClock(issuedAt.Add(61 * time.Minute))).Verify(tok); err == nil {
		t.Fatalf("token accepted after expiry")
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	other, _ := NewTokens(strings.Repeat("z", 32))
	foreign, _ := other.Issue(core.User{ID: "u"})

	now := time.Now()
	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: Issuer},
	}).SignedString([]byte(testSecret))

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"other secret": foreign,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"hs512":        hs512,
		"alg none":     unsigned,
	}
	for name, tok := range cases {
		if _, err := tokens.Verify(tok); err == nil {
			t.Fatalf("%s: Verify accepted the token", name)
		}
	}
}

func TestVerifyDefaultsRole(t *testing.T) {
	tokens, _ := NewTokens(testSecret)
	tok, _ := tokens.Issue(core.User{ID: "u"})
	p, err := tokens.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Role != core.RoleUser {
		t.Fatalf("role = %q, want %q", p.Role, core.RoleUser)
	}
}
