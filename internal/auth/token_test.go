package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

const testSecret = "test-secret-0123456789"

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour)
	u := &model.User{ID: "user-1", Email: "a@b.com"}

	token, err := iss.Issue(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@b.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil {
		t.Error("expected an expiry when ttl > 0")
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer(testSecret, time.Minute)
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return issued }

	token, _ := iss.Issue(&model.User{ID: "user-1"})

	iss.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := iss.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	iss := NewIssuer(testSecret, 0)

	other, _ := NewIssuer("another-secret-9876543", 0).Issue(&model.User{ID: "user-1"})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "x@y.z"}).
		SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", other},
		{"alg none", none},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := iss.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for header, want := range tests {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
