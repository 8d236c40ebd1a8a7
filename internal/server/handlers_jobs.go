package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SameerVers3/Scrapply/internal/store"
	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
)

const streamHeartbeat = 15 * time.Second

// handleCreateJob accepts a scraping request and starts processing it.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	job := types.NewJob(req.URL, req.Description)
	if err := s.store.Create(r.Context(), job); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create job: "+err.Error())
		return
	}

	// Processing outlives the request, so it runs on a background context.
	s.processor.Start(context.Background(), job.ID)

	s.jsonResponse(w, http.StatusCreated, job)
}

// handleGetJob returns the current state of a job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleListJobs returns a paginated job listing, optionally filtered by
// status via ?status=, with ?page= and ?size=.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{
		Page: queryInt(r, "page", 1),
		Size: queryInt(r, "size", 20),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := types.JobStatus(raw)
		if !status.Valid() {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return
		}
		filter.Status = status
	}

	list, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list jobs: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, list)
}

// handleDeleteJob removes a job and revokes its generated endpoint.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	s.registry.Revoke(id)
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetryJob resets a failed job and reprocesses it.
func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	job, err := s.processor.Retry(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			s.errorResponse(w, http.StatusNotFound, err.Error())
		} else {
			s.errorResponse(w, http.StatusConflict, err.Error())
		}
		return
	}

	s.processor.Start(context.Background(), job.ID)
	s.jsonResponse(w, http.StatusAccepted, job)
}

// handleStreamJob streams job status updates over SSE until the job reaches
// a terminal state or the client disconnects.
func (s *Server) handleStreamJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}

	// Subscribe before reading the snapshot so a transition landing between
	// the two shows up on the channel instead of being lost.
	updates, cancel := s.events.Subscribe(id)
	defer cancel()

	job, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse.WriteEvent("status", job) //nolint:errcheck
	if job.Status.Terminal() {
		sse.WriteComplete(job.ID.String(), string(job.Status))
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.WriteEvent("heartbeat", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)}) //nolint:errcheck
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.WriteEvent("status", update); err != nil {
				return
			}
			if update.Status.Terminal() {
				sse.WriteComplete(update.ID.String(), string(update.Status))
				return
			}
		}
	}
}

// jobID extracts and parses the {id} path segment, writing the error
// response itself when the value is missing or malformed.
func (s *Server) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID format")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
