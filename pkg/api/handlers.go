package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethpandaops/runtimeoor/pkg/matrix"
	"github.com/ethpandaops/runtimeoor/pkg/ranking"
	"github.com/ethpandaops/runtimeoor/pkg/report"
	"github.com/ethpandaops/runtimeoor/pkg/store"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// runDetail is the response of GET /runs/{id}.
type runDetail struct {
	Run    *store.Run           `json:"run"`
	Matrix *matrix.ResultMatrix `json:"results"`
}

// rankingResponse is the response of GET /runs/{id}/ranking.
type rankingResponse struct {
	RunID    string                    `json:"run_id"`
	Rankings []ranking.WorkloadRanking `json:"rankings"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"failed to list runs"})

		return
	}

	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)

		return
	}

	m, err := s.store.GetMatrix(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)

		return
	}

	writeJSON(w, http.StatusOK, runDetail{Run: run, Matrix: m})
}

func (s *server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := s.store.GetMatrix(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)

		return
	}

	writeJSON(w, http.StatusOK, rankingResponse{RunID: id, Rankings: ranking.Rank(m)})
}

// handleGetReport renders a stored run with ?format=table|markdown|json
// (default markdown).
func (s *server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format := report.FormatMarkdown

	if q := r.URL.Query().Get("format"); q != "" {
		f, err := report.ParseFormat(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

			return
		}

		format = f
	}

	m, err := s.store.GetMatrix(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)

		return
	}

	switch format {
	case report.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}

	if format == report.FormatMarkdown {
		_, _ = w.Write([]byte(report.Markdown(m, id, 0)))

		return
	}

	if err := report.Write(w, m, format); err != nil {
		s.log.WithError(err).WithField("run_id", id).Warn("Failed to render report")
	}
}

func (s *server) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})

		return
	}

	s.log.WithError(err).WithField("run_id", id).Error("Failed to read run")
	writeJSON(w, http.StatusInternalServerError, errorResponse{"failed to read run"})
}
