// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"

	"earnlog/internal/app"
	"earnlog/internal/domain"

	"github.com/sirupsen/logrus"
)

// Server is the driving HTTP adapter that routes requests to application
// services. The engine is resolved through a getter because an identity
// change replaces the running engine with a fresh one.
type Server struct {
	records  *app.RecordService
	engine   func() *app.SyncEngine
	sessions *app.SessionService
	registry *domain.Registry
	log      *logrus.Logger
}

// New creates a Server wired to the given application services.
func New(rs *app.RecordService, engine func() *app.SyncEngine, ss *app.SessionService, reg *domain.Registry, log *logrus.Logger) *Server {
	return &Server{records: rs, engine: engine, sessions: ss, registry: reg, log: log}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": s.engine().State().String()})
	})

	api.HandleFunc("/branches", s.handleBranches)
	api.Handle("/records", s.requireSession(http.HandlerFunc(s.handleRecords)))
	api.Handle("/records/", s.requireSession(http.HandlerFunc(s.handleRecordByID)))
	api.Handle("/totals", s.requireSession(http.HandlerFunc(s.handleTotals)))
	api.Handle("/stream", s.requireSession(http.HandlerFunc(s.handleStream)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return withNoCache(root)
}
