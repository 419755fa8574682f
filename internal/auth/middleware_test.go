package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func loginCookie(t *testing.T, m Middleware, id uuid.UUID) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	token, err := m.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/login/alice", nil), id)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionName || cookies[0].Value != token {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	return cookies[0]
}

func TestGuardAcceptsSessionCookie(t *testing.T) {
	m := NewMiddleware("test-secret", false)
	id := uuid.New()
	cookie := loginCookie(t, m, id)

	var seen uuid.UUID
	h := m.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/chart", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || seen != id {
		t.Fatalf("expected user %s, got status %d user %s", id, rec.Code, seen)
	}
}

func TestGuardRejectsMissingOrForgedSession(t *testing.T) {
	m := NewMiddleware("test-secret", false)
	other := NewMiddleware("other-secret", false)
	forged := loginCookie(t, other, uuid.New())

	h := m.Guard(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for name, cookie := range map[string]*http.Cookie{"missing": nil, "forged": forged} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/chart", nil)
			if cookie != nil {
				req.AddCookie(cookie)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestCredentialReflectsSession(t *testing.T) {
	m := NewMiddleware("test-secret", false)
	anonymous := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if _, ok := m.Credential(anonymous).Credential(); ok {
		t.Fatalf("expected no credential without a session")
	}

	cookie := loginCookie(t, m, uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	raw, ok := m.Credential(req).Credential()
	if !ok || raw != cookie.Value {
		t.Fatalf("expected cookie value as credential")
	}
}
