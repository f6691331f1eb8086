package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestMatchScope(t *testing.T) {
	tests := []struct {
		granted  string
		required string
		want     bool
	}{
		{"prior-auth:read", "prior-auth:read", true},
		{"prior-auth:write", "prior-auth:read", false},
		{"*", "prior-auth:read", true},
		{"*", "patient:write", true},
		{"prior-auth:*", "prior-auth:read", true},
		{"prior-auth:*", "patient:read", false},
		{"prior-auth:read", "patient:read", false},
		{"", "prior-auth:read", false},
		{"prior-auth:read", "", false},
		{"invalid", "prior-auth:read", false},
	}

	for _, tt := range tests {
		if got := matchScope(tt.granted, tt.required); got != tt.want {
			t.Errorf("matchScope(%q, %q) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

// invokeGuard applies a guard middleware to a request whose identity carries
// the given roles and scopes.
func invokeGuard(t *testing.T, mw echo.MiddlewareFunc, roles, scopes []string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()
	if roles != nil {
		ctx = context.WithValue(ctx, UserRolesKey, roles)
	}
	if scopes != nil {
		ctx = context.WithValue(ctx, UserScopesKey, scopes)
	}
	c := e.NewContext(req.WithContext(ctx), httptest.NewRecorder())

	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return h(c)
}

func wantForbidden(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole("physician", "nurse")

	t.Run("matching role passes", func(t *testing.T) {
		if err := invokeGuard(t, guard, []string{"physician"}, nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("other role is rejected", func(t *testing.T) {
		wantForbidden(t, invokeGuard(t, guard, []string{"billing"}, nil))
	})

	t.Run("no roles is rejected", func(t *testing.T) {
		wantForbidden(t, invokeGuard(t, guard, []string{}, nil))
	})

	t.Run("admin bypasses the check", func(t *testing.T) {
		if err := invokeGuard(t, RequireRole("physician"), []string{"admin"}, nil); err != nil {
			t.Errorf("admin should bypass role checks, got %v", err)
		}
	})
}

func TestRequireScope(t *testing.T) {
	t.Run("exact scope passes", func(t *testing.T) {
		err := invokeGuard(t, RequireScope("prior-auth", "read"),
			nil, []string{"prior-auth:read", "patient:read"})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("resource wildcard passes", func(t *testing.T) {
		err := invokeGuard(t, RequireScope("prior-auth", "write"),
			nil, []string{"prior-auth:*"})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("missing operation is rejected", func(t *testing.T) {
		wantForbidden(t, invokeGuard(t, RequireScope("prior-auth", "write"),
			nil, []string{"prior-auth:read"}))
	})
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user-123")
	if uid := UserIDFromContext(ctx); uid != "user-123" {
		t.Errorf("expected user-123, got %s", uid)
	}
	if uid := UserIDFromContext(context.Background()); uid != "" {
		t.Errorf("expected empty string, got %s", uid)
	}
}
