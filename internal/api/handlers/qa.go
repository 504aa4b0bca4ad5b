package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docintel/internal/api"
	"github.com/cloo-solutions/docintel/internal/service"
)

type DocumentQAService interface {
	Answer(ctx context.Context, documentText, question string) (*service.Answer, error)
}

type QAHandler struct {
	svc DocumentQAService
}

func NewQAHandler(svc DocumentQAService) *QAHandler {
	return &QAHandler{svc: svc}
}

type QARequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

// Answer answers a question grounded in the supplied document text.
func (h *QAHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.svc.Answer(r.Context(), req.Context, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}
