package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

// executionsResponse carries the executions that could be fetched and the
// errors of those that could not
type executionsResponse struct {
	Executions *model.RecordSet `json:"executions"`
	Errors     []string         `json:"errors,omitempty"`
}

// GetExecution handles GET /api/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	executions, err := h.service.ExecutionProgress(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "failed to get execution", err,
			slog.String("execution_id", id),
		)
		return
	}

	h.respondJSON(w, http.StatusOK, executions)
}

// ListExecutionsProgress handles GET /api/executions?ids=1,2,3
func (h *Handler) ListExecutionsProgress(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.respondError(w, http.StatusBadRequest, "ids are required")
		return
	}

	executions, err := h.service.ExecutionsProgress(r.Context(), ids)
	if err != nil && (executions == nil || executions.Len() == 0) {
		h.respondServiceError(w, "failed to get executions", err)
		return
	}

	resp := executionsResponse{Executions: executions}
	if err != nil {
		resp.Errors = strings.Split(err.Error(), "\n")
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetExecutionOutput handles GET /api/executions/{id}/output?lastlines=N
func (h *Handler) GetExecutionOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lastLines := 0
	if raw := r.URL.Query().Get("lastlines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "lastlines must be a non-negative integer")
			return
		}
		lastLines = n
	}

	output, err := h.service.ExecutionOutput(r.Context(), id, lastLines)
	if err != nil {
		h.respondServiceError(w, "failed to get execution output", err,
			slog.String("execution_id", id),
		)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"execution_id": id, "output": output})
}
