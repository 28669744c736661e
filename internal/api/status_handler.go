package api

import (
	"log/slog"
	"net/http"
)

// statusResponse reports whether Rundeck answers
type statusResponse struct {
	Status  string `json:"status"`
	Project string `json:"project"`
	Error   string `json:"error,omitempty"`
}

// GetStatus handles GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.SystemInfo(r.Context()); err != nil {
		h.logger.Warn("rundeck is not reachable",
			slog.String("error", err.Error()),
		)
		h.respondJSON(w, http.StatusServiceUnavailable, statusResponse{
			Status:  "unavailable",
			Project: h.service.Project(),
			Error:   err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, statusResponse{Status: "ok", Project: h.service.Project()})
}

// GetSystemInfo handles GET /api/system/info
func (h *Handler) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.SystemInfo(r.Context())
	if err != nil {
		h.respondServiceError(w, "failed to get system info", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"system_info": info})
}

// ListProjects handles GET /api/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.Projects(r.Context())
	if err != nil {
		h.respondServiceError(w, "failed to list projects", err)
		return
	}

	h.respondJSON(w, http.StatusOK, projects)
}
