package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tabletennis/internal/models"
)

type stubRoleStore struct {
	roleFn func(ctx context.Context, userID string) (string, error)
}

func (s stubRoleStore) Role(ctx context.Context, userID string) (string, error) {
	return s.roleFn(ctx, userID)
}

func roleIs(role string) stubRoleStore {
	return stubRoleStore{roleFn: func(context.Context, string) (string, error) { return role, nil }}
}

func serveAdmin(t *testing.T, users RoleStore, role string, withUser bool) int {
	t.Helper()
	handler := RequireAdmin(users, role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if withUser {
		req = req.WithContext(WithUser(req.Context(), "user-1", models.RoleStudent))
	}
	handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAdminMissingUser(t *testing.T) {
	users := stubRoleStore{roleFn: func(context.Context, string) (string, error) {
		t.Fatalf("unexpected call")
		return "", nil
	}}
	if code := serveAdmin(t, users, "", false); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAdminNotAdmin(t *testing.T) {
	if code := serveAdmin(t, roleIs(models.RoleCoach), "", true); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAdminLookupError(t *testing.T) {
	users := stubRoleStore{roleFn: func(context.Context, string) (string, error) { return "", errors.New("db down") }}
	if code := serveAdmin(t, users, "", true); code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}

func TestRequireAdminCampusAdmin(t *testing.T) {
	if code := serveAdmin(t, roleIs(models.RoleCampusAdmin), "", true); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serveAdmin(t, roleIs(models.RoleCampusAdmin), models.RoleSuperAdmin, true); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAdminSuperUser(t *testing.T) {
	if code := serveAdmin(t, roleIs(models.RoleSuperAdmin), models.RoleCampusAdmin, true); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdminRefreshesRole(t *testing.T) {
	handler := RequireAdmin(roleIs(models.RoleCampusAdmin), "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role := RoleFromContext(r.Context()); role != models.RoleCampusAdmin {
			t.Fatalf("expected stored role in context, got %q", role)
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "user-1", models.RoleStudent))
	handler.ServeHTTP(httptest.NewRecorder(), req)
}
