package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, headers map[string]string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var seen echo.Context
	err := mw(func(c echo.Context) error {
		seen = c
		return okHandler(c)
	})(c)
	return seen, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), nil)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}),
				map[string]string{"Authorization": tt.header})
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	actor := Actor{ID: uuid.New(), Role: RoleDoctor}
	token, err := IssueToken(testSigningKey, actor, "clinicflow", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	c, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "clinicflow"}),
		map[string]string{"Authorization": "Bearer " + token})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := ActorFromContext(c.Request().Context())
	if !ok || got != actor {
		t.Errorf("expected actor %+v, got %+v", actor, got)
	}
	if c.Get(ActorIDKey) != actor.ID.String() {
		t.Errorf("expected actor id on echo context")
	}
}

func TestJWTMiddleware_RejectsBadClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		key    []byte
	}{
		{"wrong key", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}, Role: "doctor"}, []byte("other-key")},
		{"non-uuid subject", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "dev-user"}, Role: "doctor"}, testSigningKey},
		{"unknown role", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()}, Role: "admin"}, testSigningKey},
		{"expired", Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}, Role: "patient"}, testSigningKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString(tt.key)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			_, err = runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}),
				map[string]string{"Authorization": "Bearer " + token})
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestDevAuthMiddleware_Headers(t *testing.T) {
	id := uuid.New()
	c, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), map[string]string{
		"X-Actor-ID":   id.String(),
		"X-Actor-Role": "lab_staff",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actor, _ := ActorFromContext(c.Request().Context())
	if actor.ID != id || actor.Role != RoleLabStaff {
		t.Errorf("unexpected actor %+v", actor)
	}
}

func TestDevAuthMiddleware_RejectsMissingHeaders(t *testing.T) {
	_, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), map[string]string{
		"X-Actor-Role": "doctor",
	})
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware_StillValidatesBearer(t *testing.T) {
	_, err := runMiddleware(t, DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey}), map[string]string{
		"Authorization": "Bearer not-a-token",
		"X-Actor-ID":    uuid.NewString(),
		"X-Actor-Role":  "doctor",
	})
	expectStatus(t, err, http.StatusUnauthorized)
}
