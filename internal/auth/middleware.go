package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	SessionName = "pongboard-session"
	userKey     = "user_id"
)

type userContextKey struct{}

type Middleware struct {
	store *sessions.CookieStore
}

func NewMiddleware(secret string, secure bool) Middleware {
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.Path = "/"
	s.Options.HttpOnly = true
	s.Options.Secure = secure
	s.Options.SameSite = http.SameSiteLaxMode
	return Middleware{store: s}
}

// Login stores userID in a fresh session cookie and returns the encoded
// cookie value, which API clients replay as their credential.
func (m Middleware) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (string, error) {
	session, err := m.store.New(r, SessionName)
	if session == nil {
		return "", err
	}
	session.Values[userKey] = userID.String()
	token, err := securecookie.EncodeMulti(session.Name(), session.Values, m.store.Codecs...)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), token, session.Options))
	return token, nil
}

func (m Middleware) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Session returns the logged in user and the raw cookie carrying it.
func (m Middleware) Session(r *http.Request) (uuid.UUID, string, bool) {
	cookie, err := r.Cookie(SessionName)
	if err != nil {
		return uuid.Nil, "", false
	}
	session, err := m.store.Get(r, SessionName)
	if err != nil || session.IsNew {
		return uuid.Nil, "", false
	}
	raw, _ := session.Values[userKey].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, cookie.Value, true
}

func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _, ok := m.Session(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the user when there is one and never rejects.
func (m Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, _, ok := m.Session(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(userContextKey{})
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Credential adapts a request to the dashboard's credential query.
type Credential struct {
	m Middleware
	r *http.Request
}

func (m Middleware) Credential(r *http.Request) Credential {
	return Credential{m: m, r: r}
}

func (c Credential) Credential() (string, bool) {
	_, raw, ok := c.m.Session(c.r)
	return raw, ok
}
