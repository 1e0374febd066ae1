package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lunavision/facesink/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// UploadResponse is returned when an artifact is accepted
type UploadResponse struct {
	Key    string `json:"key" example:"incoming/report.json"`
	Status string `json:"status" example:"accepted"`
}

// SweepResponse is returned when a sweep is enqueued
type SweepResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status" example:"enqueued"`
}

// NotifyRequest carries the recipients to notify
type NotifyRequest struct {
	Recipients []domain.Recipient `json:"recipients"`
}

// NotifyResponse reports per-recipient delivery outcomes
type NotifyResponse struct {
	Outcomes []domain.NotifyOutcome `json:"outcomes"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks tabular store, queue backend and optional extra dependency
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "artifact store unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Ingestion endpoints

// handleUpload godoc
// @Summary      Upload a face document
// @Description  Accepts a JSON artifact, stores it in the incoming folder and enqueues ingestion
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "JSON document"
// @Success      201  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse  "Missing or invalid file"
// @Failure      500  {object}  ErrorResponse  "Storage failure"
// @Router       /api/v1/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	key, err := s.uploadService.Accept(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Key: key, Status: "accepted"})
}

// handleRunStatus godoc
// @Summary      Get the latest pipeline run for an artifact
// @Tags         Ingestion
// @Produce      json
// @Param        name  path  string  true  "Artifact filename"
// @Success      200  {object}  domain.Run
// @Failure      404  {object}  ErrorResponse  "No run recorded for artifact"
// @Router       /api/v1/runs/{name} [get]
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "artifact name is required")
		return
	}

	run, err := s.uploadService.RunStatus(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no run recorded for artifact")
			return
		}
		s.logger.Error("run status lookup failed", "artifact", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleSweep godoc
// @Summary      Enqueue a sweep of the incoming folder
// @Tags         Ingestion
// @Produce      json
// @Success      202  {object}  SweepResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/sweep [post]
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	taskID, err := s.uploadService.RequestSweep(r.Context())
	if err != nil {
		s.logger.Error("sweep enqueue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue sweep")
		return
	}

	writeJSON(w, http.StatusAccepted, SweepResponse{TaskID: taskID, Status: "enqueued"})
}

// Notification endpoint

// handleNotify godoc
// @Summary      Notify matched persons
// @Description  Sends one message per recipient; per-recipient outcomes are independent
// @Tags         Notification
// @Accept       json
// @Produce      json
// @Param        request  body      NotifyRequest  true  "Recipients"
// @Success      200      {object}  NotifyResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Router       /api/v1/notify [post]
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Recipients) == 0 {
		writeError(w, http.StatusBadRequest, "recipients are required")
		return
	}

	outcomes, err := s.notifyService.NotifyRecipients(r.Context(), req.Recipients)
	if err != nil {
		s.logger.Error("notify failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to notify recipients")
		return
	}

	writeJSON(w, http.StatusOK, NotifyResponse{Outcomes: outcomes})
}

// Queue introspection

// handleQueueStats godoc
// @Summary      Get task queue statistics
// @Tags         Queue
// @Produce      json
// @Success      200  {object}  driven.QueueStats
// @Router       /api/v1/queue/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		s.logger.Error("queue stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
