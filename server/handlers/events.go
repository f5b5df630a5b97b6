package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/calshare/server/events"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/samber/mo"
)

type eventRequest struct {
	CalendarID string    `json:"calendarId"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Color      string    `json:"color"`
	// RRule, when set on create, repeats the event, e.g. FREQ=WEEKLY;COUNT=4
	RRule string `json:"rrule,omitempty"`
}

type eventListResponse struct {
	okBody
	Events []eventJSON `json:"events"`
}

type eventResponse struct {
	okBody
	Event eventJSON `json:"event"`
}

func (r *Router) handleListEvents(w http.ResponseWriter, req *http.Request) {
	filter := mo.None[string]()
	if id := strings.TrimSpace(req.URL.Query().Get("calendarId")); id != "" {
		filter = mo.Some(id)
	}

	evs, err := r.events.List(req.Context(), principal(req), filter).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, eventListResponse{okBody: success, Events: toEventsJSON(evs)})
}

func (r *Router) handleCreateEvent(w http.ResponseWriter, req *http.Request) {
	var body eventRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	draft := events.Draft{
		CalendarID: body.CalendarID,
		Title:      body.Title,
		Notes:      body.Notes,
		Start:      body.Start,
		End:        body.End,
		Color:      body.Color,
	}

	if body.RRule != "" {
		evs, err := r.events.CreateSeries(req.Context(), principal(req), draft, recurrence.Rule{RRULE: body.RRule}).Get()
		if err != nil {
			r.writeFailure(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, eventListResponse{okBody: success, Events: toEventsJSON(evs)})
		return
	}

	ev, err := r.events.Create(req.Context(), principal(req), draft).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventResponse{okBody: success, Event: toEventJSON(ev)})
}

func (r *Router) handleUpdateEvent(w http.ResponseWriter, req *http.Request) {
	var body eventRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	ev, err := r.events.Update(req.Context(), principal(req), req.PathValue("id"), events.Patch{
		Title: body.Title,
		Notes: body.Notes,
		Start: body.Start,
		End:   body.End,
		Color: body.Color,
	}).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{okBody: success, Event: toEventJSON(ev)})
}

func (r *Router) handleDeleteEvent(w http.ResponseWriter, req *http.Request) {
	if err := r.events.Delete(req.Context(), principal(req), req.PathValue("id")).Error(); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeMessage(w, "event deleted")
}

func (r *Router) handleExportICS(w http.ResponseWriter, req *http.Request) {
	ics, err := r.events.ExportICS(req.Context(), principal(req), req.PathValue("id")).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	w.Header().Set(HeaderContentType, MimeTypeCalendar)
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.PathValue("id")+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ics)
}

func (r *Router) handleImportICS(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		r.badRequest(w, req, "could not read calendar data")
		return
	}

	evs, err := r.events.ImportICS(req.Context(), principal(req), req.PathValue("id"), string(data)).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventListResponse{okBody: success, Events: toEventsJSON(evs)})
}
