package adapthttp

import (
	"net/http"
	"strings"

	"earnlog/internal/domain"

	"github.com/shopspring/decimal"
)

type recordBody struct {
	Branch string          `json:"branch"`
	Date   string          `json:"date"`
	Sales  decimal.Decimal `json:"sales"`
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"branches": s.registry.Branches()})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		eng := s.engine()
		records := eng.Records()
		writeJSON(w, http.StatusOK, map[string]any{
			"records": records,
			"count":   len(records),
			"loading": eng.Loading(),
			"state":   eng.State().String(),
		})

	case http.MethodPost:
		var body recordBody
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		id, err := s.records.Create(r.Context(), body.Branch, body.Date, body.Sales)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/records/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var body recordBody
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.records.Update(r.Context(), id, body.Branch, body.Date, body.Sales); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case http.MethodDelete:
		if err := s.records.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	totals := domain.Aggregate(s.engine().Records())
	writeJSON(w, http.StatusOK, map[string]any{
		"totals":   totals,
		"earnings": totals.Earnings(),
	})
}
