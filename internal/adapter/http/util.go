package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"earnlog/internal/app"
	"earnlog/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps application errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidSales),
		errors.Is(err, app.ErrInvalidDate),
		errors.Is(err, domain.ErrUnknownBranch):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, app.ErrNoActiveSession):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, app.ErrEngineStopped):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, app.ErrStoreUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
