package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/session"
)

// SessionCookie carries the session token for browser clients. HttpOnly and
// SameSite keep it out of page scripts.
const SessionCookie = "watchbuddy_session"

type ctxKeyUser struct{}

// Verifier resolves the caller's session token on every request and stashes
// the sanitized user in the request context.
type Verifier struct {
	Sessions session.Manager
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := v.Sessions.Resolve(r.Context(), TokenFromRequest(r))
		if err != nil {
			status, msg := http.StatusUnauthorized, "unauthenticated"
			if !errors.Is(err, session.ErrUnauthenticated) {
				status, msg = http.StatusServiceUnavailable, "temporarily unavailable, try again"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// TokenFromRequest extracts the session token from the Authorization bearer
// header, falling back to the session cookie for browser requests.
func TokenFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

// CurrentUser returns the resolved caller, or nil outside authed routes.
func CurrentUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(ctxKeyUser{}).(*models.User); ok {
		return u
	}
	return nil
}

// UserID is a convenience for handlers that only need the caller's id.
func UserID(ctx context.Context) string {
	if u := CurrentUser(ctx); u != nil {
		return u.ID
	}
	return ""
}

// SetSessionCookie writes the session cookie with HttpOnly and SameSite=Lax.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

// ClearSessionCookie overwrites the cookie with MaxAge=-1 so browsers drop it.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
