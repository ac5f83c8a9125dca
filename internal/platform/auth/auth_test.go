package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, "officer@example.org", RoleFieldOfficer)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Email != "officer@example.org" {
		t.Errorf("unexpected email %s", claims.Email)
	}
	if claims.Role != RoleFieldOfficer {
		t.Errorf("unexpected role %s", claims.Role)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, -time.Minute)
	token, err := issuer.Issue(uuid.New(), "a@b.c", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, err := issuer.Issue(uuid.New(), "a@b.c", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	other := NewTokenIssuer("another-secret-another-secret-123", time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func newTestContext(t *testing.T, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddleware_ValidToken(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	userID := uuid.New()
	token, _ := issuer.Issue(userID, "officer@example.org", RoleFieldOfficer)

	c, _ := newTestContext(t, "Bearer "+token)

	var got Actor
	handler := Middleware(issuer)(func(c echo.Context) error {
		got, _ = ActorFromContext(c.Request().Context())
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != userID {
		t.Errorf("expected actor ID %s, got %s", userID, got.ID)
	}
	if got.Role != RoleFieldOfficer {
		t.Errorf("expected role %s, got %s", RoleFieldOfficer, got.Role)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	c, _ := newTestContext(t, "")

	handler := Middleware(issuer)(func(c echo.Context) error { return nil })
	err := handler(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	for _, header := range []string{"Bearer", "Basic abc123", "garbage"} {
		c, _ := newTestContext(t, header)
		handler := Middleware(issuer)(func(c echo.Context) error { return nil })
		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %v", header, err)
		}
	}
}

func TestRequireRole(t *testing.T) {
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}
	officer := Actor{ID: uuid.New(), Role: RoleFieldOfficer}

	handler := RequireRole(RoleAdmin)(func(c echo.Context) error { return nil })

	c, _ := newTestContext(t, "")
	c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), admin)))
	if err := handler(c); err != nil {
		t.Errorf("admin should pass: %v", err)
	}

	c, _ = newTestContext(t, "")
	c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), officer)))
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("officer should be rejected with 403, got %v", err)
	}

	c, _ = newTestContext(t, "")
	err = handler(c)
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("missing actor should be rejected with 401, got %v", err)
	}
}
