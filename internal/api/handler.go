package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirychukyurii/rundeck-bridge/internal/repository"
	"github.com/kirychukyurii/rundeck-bridge/internal/service"
)

// maxImportBytes bounds the size of an uploaded job list
const maxImportBytes = 10 << 20

// Handler holds the HTTP handlers and dependencies
type Handler struct {
	service  service.JobService
	logger   *slog.Logger
	basePath string
}

// NewHandler creates a new HTTP handler
func NewHandler(service service.JobService, basePath string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		basePath: basePath,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Recoverer)

	routesHandler := h.createRoutes()

	if h.basePath != "" {
		r.Mount(h.basePath, routesHandler)
	} else {
		r.Mount("/", routesHandler)
	}

	return r
}

// createRoutes creates the API routes
func (h *Handler) createRoutes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/system/info", h.GetSystemInfo)
		r.Get("/projects", h.ListProjects)

		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/by-name/{name}", h.GetJobIDByName)
		r.Post("/jobs/import", h.ImportJobs)
		r.Post("/jobs/{id}/run", h.RunJob)

		r.Get("/executions", h.ListExecutionsProgress)
		r.Get("/executions/{id}", h.GetExecution)
		r.Get("/executions/{id}/output", h.GetExecutionOutput)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		next.ServeHTTP(w, r)
	})
}

// projectService returns the service for the ?project= query parameter, if any
func (h *Handler) projectService(r *http.Request) service.JobService {
	if project := r.URL.Query().Get("project"); project != "" {
		return h.service.ForProject(project)
	}
	return h.service
}

// errorResponse represents an error response
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

// respondError writes an error response
func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, errorResponse{Error: message})
}

// respondServiceError logs a failed service call and maps it to a status code:
// Rundeck rejections are 422, unreachable or unreadable upstreams are 502
func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	h.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	h.respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var (
		apiErr       *repository.APIError
		transportErr *repository.TransportError
		parseErr     *repository.ParseError
	)

	switch {
	case errors.As(err, &apiErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transportErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
