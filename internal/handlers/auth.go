package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/yourname/watchbuddy/internal/auth"
	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/ratelimit"
	"github.com/yourname/watchbuddy/internal/session"
	"github.com/yourname/watchbuddy/internal/store"
	"github.com/yourname/watchbuddy/internal/validate"
)

type AuthHandler struct {
	Store        store.Store
	Sessions     session.Manager
	Limiter      *ratelimit.Limiter
	Log          *zap.Logger
	CookieSecure bool
}

func NewAuthHandler(s store.Store, mgr session.Manager, lim *ratelimit.Limiter, log *zap.Logger, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Store: s, Sessions: mgr, Limiter: lim, Log: log, CookieSecure: cookieSecure}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}
	type bodyT struct {
		Username string `json:"username" validate:"required,min=3,max=32"`
		Email    string `json:"email" validate:"omitempty,email"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	hash, err := auth.HashPassword(b.Password)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	u := &models.User{
		Username:     b.Username,
		Email:        b.Email,
		PasswordHash: hash,
		Status:       models.StatusActive,
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		writeDomainError(w, h.Log, err)
		return
	}
	token, expiresAt, err := h.Sessions.Issue(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	// The HttpOnly cookie is the only carrier; the token never appears in
	// the body where page scripts could read it.
	auth.SetSessionCookie(w, token, expiresAt, h.CookieSecure)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":       u.Sanitized(),
		"expires_at": expiresAt,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}
	type bodyT struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	u, err := h.Store.GetUserByUsername(r.Context(), b.Username)
	if errors.Is(err, store.ErrNotFound) {
		// Same response as a bad password; no account probing.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if u.Status != models.StatusActive || !auth.VerifyPassword(u.PasswordHash, b.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, expiresAt, err := h.Sessions.Issue(r.Context(), u.ID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	auth.SetSessionCookie(w, token, expiresAt, h.CookieSecure)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       u.Sanitized(),
		"expires_at": expiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Revoke(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	auth.ClearSessionCookie(w, h.CookieSecure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
