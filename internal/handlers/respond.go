package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yourname/watchbuddy/internal/membership"
	"github.com/yourname/watchbuddy/internal/ordering"
	"github.com/yourname/watchbuddy/internal/picker"
	"github.com/yourname/watchbuddy/internal/rating"
	"github.com/yourname/watchbuddy/internal/session"
	"github.com/yourname/watchbuddy/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy to HTTP. Authorization misses
// arrive as ErrNotFound already, so nothing here can leak existence.
// Anything unrecognized is treated as storage trouble: generic retry signal
// outward, full cause in the log.
func writeDomainError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, session.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, ordering.ErrBadPermutation),
		errors.Is(err, rating.ErrScoreRange),
		errors.Is(err, membership.ErrOwnerImmutable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, picker.ErrNoMatch):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		if log != nil {
			log.Error("storage error", zap.Error(err))
		}
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again")
	}
}
