package handlers

import (
	"net/http"

	"github.com/cloo-solutions/docintel/internal/api"
)

// JobCounter reports how many jobs are running.
type JobCounter interface {
	InFlight() int64
}

type HealthHandler struct {
	jobs          JobCounter
	knowledgeSize int
}

func NewHealthHandler(jobs JobCounter, knowledgeSize int) *HealthHandler {
	return &HealthHandler{jobs: jobs, knowledgeSize: knowledgeSize}
}

type HealthResponse struct {
	Status           string `json:"status"`
	JobsInFlight     int64  `json:"jobs_in_flight"`
	KnowledgeEntries int    `json:"knowledge_entries"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", KnowledgeEntries: h.knowledgeSize}
	if h.jobs != nil {
		resp.JobsInFlight = h.jobs.InFlight()
	}
	api.Success(w, http.StatusOK, resp)
}
