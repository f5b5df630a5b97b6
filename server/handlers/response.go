package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cyp0633/calshare/server/auth"
	"github.com/cyp0633/calshare/server/calendars"
	"github.com/cyp0633/calshare/server/outcome"
	"github.com/cyp0633/calshare/server/storage"
)

// statusFor maps a failure kind onto an HTTP status.
func statusFor(kind outcome.Kind) int {
	switch kind {
	case outcome.NotFound:
		return http.StatusNotFound
	case outcome.Forbidden:
		return http.StatusForbidden
	case outcome.Conflict:
		return http.StatusConflict
	case outcome.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// okBody starts every success response.
type okBody struct {
	OK bool `json:"ok"`
}

var success = okBody{OK: true}

type failureBody struct {
	OK   bool         `json:"ok"`
	Kind outcome.Kind `json:"kind"`
	Msg  string       `json:"msg"`
}

type messageResponse struct {
	okBody
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(HeaderContentType, MimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{okBody: success, Msg: msg})
}

func (r *Router) writeFailure(w http.ResponseWriter, req *http.Request, err error) {
	f := outcome.As(err)
	status := statusFor(f.Kind)
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
	}
	writeJSON(w, status, failureBody{Kind: f.Kind, Msg: f.Message})
}

func (r *Router) badRequest(w http.ResponseWriter, req *http.Request, format string, args ...any) {
	r.writeFailure(w, req, outcome.Invalidf(format, args...))
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

// principal returns the authenticated user id. The auth middleware guarantees one.
func principal(req *http.Request) string {
	if p := auth.GetPrincipalFromContext(req.Context()); p != nil {
		return p.ID
	}
	return ""
}

type calendarJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	HasShareLink bool   `json:"hasShareLink"`
}

func toCalendarJSON(cal *storage.Calendar) calendarJSON {
	return calendarJSON{
		ID:           cal.ID,
		Name:         cal.Name,
		Owner:        cal.Owner,
		HasShareLink: cal.ShareToken.IsPresent(),
	}
}

type summaryJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Role  string `json:"role"`
}

func toSummaryJSON(s calendars.Summary) summaryJSON {
	return summaryJSON{ID: s.ID, Name: s.Name, Owner: s.Owner, Role: s.Role.String()}
}

type memberJSON struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

type eventJSON struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Creator    string    `json:"creator"`
	CalendarID string    `json:"calendarId"`
	Color      string    `json:"color"`
}

func toEventJSON(ev *storage.Event) eventJSON {
	return eventJSON{
		ID:         ev.ID,
		Title:      ev.Title,
		Notes:      ev.Notes,
		Start:      ev.Start,
		End:        ev.End,
		Creator:    ev.Creator,
		CalendarID: ev.CalendarID,
		Color:      ev.Color,
	}
}

func toEventsJSON(evs []*storage.Event) []eventJSON {
	out := make([]eventJSON, 0, len(evs))
	for _, ev := range evs {
		out = append(out, toEventJSON(ev))
	}
	return out
}
