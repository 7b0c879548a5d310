package handlers

import (
	"net/http"

	"github.com/yourname/watchbuddy/internal/auth"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

// Me returns the resolved caller; the middleware already sanitized it.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
