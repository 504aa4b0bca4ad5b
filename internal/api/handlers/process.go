package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docintel/internal/api"
	"github.com/cloo-solutions/docintel/internal/domain"
)

// JobSubmitter schedules a document for background processing.
type JobSubmitter interface {
	Submit(job domain.Job) error
}

type ProcessHandler struct {
	jobs JobSubmitter
}

func NewProcessHandler(jobs JobSubmitter) *ProcessHandler {
	return &ProcessHandler{jobs: jobs}
}

type ProcessRequest struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	MimeType   string `json:"mime_type"`
}

type ProcessResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// Process accepts a job and returns before any processing happens.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job := domain.Job{
		DocumentID: strings.TrimSpace(req.DocumentID),
		Source:     strings.TrimSpace(req.FilePath),
		MimeType:   strings.TrimSpace(req.MimeType),
	}
	if err := h.jobs.Submit(job); err != nil {
		if domain.CodeOf(err) == "" {
			api.Error(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, ProcessResponse{
		Message:    "Job accepted",
		DocumentID: job.DocumentID,
	})
}
