package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, exp, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !LooksLikeJWT(token) {
		t.Errorf("token %q does not look like a JWT", token)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("expiry %v is not about an hour away", exp)
	}

	sub, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if sub != "user-123" {
		t.Errorf("subject = %s, want user-123", sub)
	}
}

func TestTokenIssuer_Claims(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, _, _ := issuer.Issue("user-123")

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if parsed.Method.Alg() != "HS256" {
		t.Errorf("alg = %s, want HS256", parsed.Method.Alg())
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != TokenAudience {
		t.Errorf("audience = %v, want [%s]", claims.Audience, TokenAudience)
	}
	if claims.IssuedAt == nil {
		t.Error("iat claim missing")
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, _ := NewTokenIssuer("secret-a", time.Hour).Issue("user-123")

	_, err := NewTokenIssuer("secret-b", time.Hour).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() = %v, want ErrExpiredToken", err)
	}
}

func TestTokenIssuer_WrongAudience(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		Audience:  jwt.ClaimStrings{"someone-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign error = %v", err)
	}

	if _, err := NewTokenIssuer("test-secret", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_EmptyInputs(t *testing.T) {
	issuer := NewTokenIssuer("", 0)

	if _, _, err := issuer.Issue(" "); err == nil {
		t.Error("Issue() with blank user ID should fail")
	}
	if _, err := issuer.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(\"\") = %v, want ErrInvalidToken", err)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if LooksLikeJWT("abc") {
		t.Error("plain session ID should not look like a JWT")
	}
	if !LooksLikeJWT("a.b.c") {
		t.Error("three segments should look like a JWT")
	}
}
