package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func protected(v *Verifier, capture *string) http.Handler {
	return v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*capture = OwnerID(r)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware_NoToken(t *testing.T) {
	var owner string
	h := protected(NewVerifier(testSecret), &owner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
	if owner != "" {
		t.Fatalf("handler should not run, got owner %q", owner)
	}
}

func TestMiddleware_InvalidToken(t *testing.T) {
	var owner string
	h := protected(NewVerifier(testSecret), &owner)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "u1"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	var owner string
	h := protected(NewVerifier(testSecret), &owner)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestMiddleware_ResolvesOwner(t *testing.T) {
	var owner string
	h := protected(NewVerifier(testSecret), &owner)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if owner != "u1" {
		t.Fatalf("expected owner u1, got %q", owner)
	}
}

func TestVerifyToken_ExpiredRejected(t *testing.T) {
	v := NewVerifier(testSecret)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := v.VerifyToken(s); err == nil {
		t.Fatalf("expected expired token rejected")
	}
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := v.VerifyToken(s); err == nil {
		t.Fatalf("expected token without subject rejected")
	}
}
