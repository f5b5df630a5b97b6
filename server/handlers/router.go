// Package handlers exposes the calendar services as a JSON HTTP API.
package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/calshare/server/assistant"
	"github.com/cyp0633/calshare/server/auth"
	"github.com/cyp0633/calshare/server/calendars"
	"github.com/cyp0633/calshare/server/events"
	"github.com/cyp0633/calshare/server/sharing"
)

const (
	// HTTP headers
	HeaderContentType = "Content-Type"

	// MIME types
	MimeTypeJSON     = "application/json"
	MimeTypeCalendar = "text/calendar; charset=utf-8"

	// maxBodyBytes caps request bodies, ICS uploads included
	maxBodyBytes = 1 << 20

	healthPath = "/health"
)

// Config wires the services behind the router
type Config struct {
	Calendars     *calendars.Service
	Events        *events.Service
	Sharing       *sharing.Manager
	Assistant     *assistant.Assistant
	Authenticator auth.Authenticator
	Realm         string
	Logger        *slog.Logger
}

// Router handles API request routing
type Router struct {
	calendars *calendars.Service
	events    *events.Service
	sharing   *sharing.Manager
	assistant *assistant.Assistant
	mux       *http.ServeMux
	handler   http.Handler
	logger    *slog.Logger
}

// NewRouter creates the API router. Every route except /health requires Basic auth.
func NewRouter(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Router{
		calendars: cfg.Calendars,
		events:    cfg.Events,
		sharing:   cfg.Sharing,
		assistant: cfg.Assistant,
		mux:       http.NewServeMux(),
		logger:    logger,
	}

	r.mux.HandleFunc("GET "+healthPath, r.handleHealth)

	r.mux.HandleFunc("GET /api/calendars", r.handleListCalendars)
	r.mux.HandleFunc("POST /api/calendars", r.handleCreateCalendar)
	r.mux.HandleFunc("GET /api/calendars/search", r.handleSearchCalendars)
	r.mux.HandleFunc("PUT /api/calendars/{id}", r.handleRenameCalendar)
	r.mux.HandleFunc("DELETE /api/calendars/{id}", r.handleDeleteCalendar)
	r.mux.HandleFunc("GET /api/calendars/{id}/members", r.handleListMembers)
	r.mux.HandleFunc("POST /api/calendars/{id}/members", r.handleAddMember)
	r.mux.HandleFunc("PUT /api/calendars/{id}/members/{memberId}", r.handleUpdateMember)
	r.mux.HandleFunc("DELETE /api/calendars/{id}/members/{memberId}", r.handleRemoveMember)
	r.mux.HandleFunc("DELETE /api/calendars/{id}/leave", r.handleLeave)

	r.mux.HandleFunc("GET /api/calendars/{id}/share", r.handleInspectShare)
	r.mux.HandleFunc("POST /api/calendars/{id}/share", r.handleGenerateShare)
	r.mux.HandleFunc("DELETE /api/calendars/{id}/share", r.handleRevokeShare)
	r.mux.HandleFunc("POST /api/join/{token}", r.handleJoin)

	r.mux.HandleFunc("GET /api/calendars/{id}/ics", r.handleExportICS)
	r.mux.HandleFunc("POST /api/calendars/{id}/ics", r.handleImportICS)

	r.mux.HandleFunc("GET /api/events", r.handleListEvents)
	r.mux.HandleFunc("POST /api/events", r.handleCreateEvent)
	r.mux.HandleFunc("PUT /api/events/{id}", r.handleUpdateEvent)
	r.mux.HandleFunc("DELETE /api/events/{id}", r.handleDeleteEvent)

	r.mux.HandleFunc("POST /api/assistant", r.handleAssistant)

	r.handler = auth.Middleware(cfg.Authenticator, cfg.Realm, healthPath)(r.mux)
	return r
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	r.handler.ServeHTTP(rec, req)

	r.logger.Info("request handled",
		"method", req.Method,
		"path", req.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
		"remote_addr", req.RemoteAddr)
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, success)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
