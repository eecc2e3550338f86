// Package api serves the chewy HTTP JSON API.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/sandeepkv93/chewy/internal/service"
	"github.com/sandeepkv93/chewy/internal/storage"
)

type Deps struct {
	Planner     *service.Planner
	Repo        storage.Repository
	Auth        *Authenticator
	CORSOrigins []string
	Location    *time.Location
	Logger      *slog.Logger
}

type Handler struct {
	planner *service.Planner
	repo    storage.Repository
	loc     *time.Location
	logger  *slog.Logger
}

// New builds the routed, authenticated and CORS-wrapped API handler.
func New(d Deps) http.Handler {
	h := &Handler{planner: d.Planner, repo: d.Repo, loc: d.Location, logger: d.Logger}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	auth := d.Auth
	if auth == nil {
		auth = NewAuthenticator(AuthOptions{})
	}

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/auth/me", auth.Me)
	protected.HandleFunc("GET /api/tasks", h.ListTasks)
	protected.HandleFunc("POST /api/tasks", h.CreateTask)
	protected.HandleFunc("GET /api/tasks/{id}", h.GetTask)
	protected.HandleFunc("PUT /api/tasks/{id}", h.UpdateTask)
	protected.HandleFunc("DELETE /api/tasks/{id}", h.DeleteTask)
	protected.HandleFunc("POST /api/tasks/{id}/complete", h.CompleteTask)

	protected.HandleFunc("GET /api/calendar", h.CalendarRange)
	protected.HandleFunc("GET /api/calendar/events", h.ListEvents)
	protected.HandleFunc("PUT /api/calendar/events/{id}", h.UpdateEvent)
	protected.HandleFunc("DELETE /api/calendar/events", h.ClearEvents)
	protected.HandleFunc("POST /api/calendar/sync", h.SyncCalendar)

	protected.HandleFunc("POST /api/schedule/generate", h.GenerateSchedule)
	protected.HandleFunc("GET /api/schedule", h.GetSchedule)
	protected.HandleFunc("PUT /api/schedule/tasks/{id}", h.UpdateScheduledTask)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/auth/login", auth.Login)
	mux.Handle("/api/", auth.Middleware(protected))

	c := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(h.logRequests(mux))
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
