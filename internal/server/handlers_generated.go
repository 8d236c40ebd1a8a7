package server

import (
	"net/http"

	"github.com/SameerVers3/Scrapply/internal/registry"
)

// handleExecuteGenerated runs the scraper behind a live generated endpoint
// and returns the full result set.
func (s *Server) handleExecuteGenerated(w http.ResponseWriter, r *http.Request) {
	s.invokeGenerated(w, r, registry.ModeExecute)
}

// handleTestGenerated runs the scraper and returns a small result sample.
func (s *Server) handleTestGenerated(w http.ResponseWriter, r *http.Request) {
	s.invokeGenerated(w, r, registry.ModeTest)
}

func (s *Server) invokeGenerated(w http.ResponseWriter, r *http.Request, mode registry.Mode) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	result, err := s.registry.Invoke(r.Context(), id, mode)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGeneratedInfo reports endpoint metadata and usage statistics.
func (s *Server) handleGeneratedInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	info, err := s.registry.Info(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}
