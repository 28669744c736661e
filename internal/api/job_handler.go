package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

// ListJobs handles GET /api/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	svc := h.projectService(r)

	jobs, err := svc.ListJobs(r.Context())
	if err != nil {
		h.respondServiceError(w, "failed to list jobs", err,
			slog.String("project", svc.Project()),
		)
		return
	}

	h.respondJSON(w, http.StatusOK, jobs)
}

// GetJobIDByName handles GET /api/jobs/by-name/{name}
func (h *Handler) GetJobIDByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "job name is required")
		return
	}

	id, found, err := h.projectService(r).JobIDByName(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, "failed to find job", err,
			slog.String("name", name),
		)
		return
	}
	if !found {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"id": id, "name": name})
}

// RunJob handles POST /api/jobs/{id}/run. The optional body is an ordered
// list of {"name","value"} arguments.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job id is required")
		return
	}

	var args []model.JobArgument
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid job arguments: "+err.Error())
		return
	}

	executions, err := h.service.RunJob(r.Context(), jobID, args)
	if err != nil {
		h.respondServiceError(w, "failed to run job", err,
			slog.String("job_id", jobID),
		)
		return
	}

	h.respondJSON(w, http.StatusOK, executions)
}

// ImportJobs handles POST /api/jobs/import with a <joblist> document as body
func (h *Handler) ImportJobs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		h.respondError(w, http.StatusRequestEntityTooLarge, "failed to read job list: "+err.Error())
		return
	}
	if len(body) == 0 {
		h.respondError(w, http.StatusBadRequest, "job list is required")
		return
	}

	svc := h.projectService(r)

	result, err := svc.ImportJobList(r.Context(), string(body))
	if err != nil {
		h.respondServiceError(w, "failed to import jobs", err,
			slog.String("project", svc.Project()),
		)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
