// Package simulator serves the simulated screening system over HTTP. It
// exposes the same scoring pipeline the in-process target runs, so the
// harness exercises an identical system in either mode.
package simulator

import (
	"encoding/json"
	"net/http"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/target"
)

// Server handles candidate submissions against one scoring target.
type Server struct {
	client target.Client
	log    logger.Logger
	mux    *http.ServeMux
}

// NewServer builds the HTTP surface over a scoring client.
func NewServer(client target.Client, log logger.Logger) *Server {
	s := &Server{
		client: client,
		log:    log,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc(target.SubmitPath, s.handleSubmit)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// Handler returns the routable HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed,
			commonerrors.NewValidationError("method not allowed"))
		return
	}

	var req target.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, commonerrors.NewValidationError(err.Error()))
		return
	}

	outcome, err := s.client.Submit(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if commonerrors.CodeOf(err) == commonerrors.ErrCodeValidationFailed {
			status = http.StatusBadRequest
		}
		s.log.WithError(err).Warn("submission rejected", map[string]interface{}{
			"candidate": req.Candidate.Name,
		})
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"error": err.Error()}
	if stdErr, ok := err.(*commonerrors.StandardError); ok {
		body["error"] = stdErr
	}
	writeJSON(w, status, body)
}
