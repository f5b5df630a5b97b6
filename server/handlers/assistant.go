package handlers

import (
	"net/http"

	"github.com/cyp0633/calshare/server/assistant"
)

type assistantResponse struct {
	okBody
	Msg      string        `json:"msg"`
	Events   []eventJSON   `json:"events,omitempty"`
	Calendar *calendarJSON `json:"calendar,omitempty"`
}

func (r *Router) handleAssistant(w http.ResponseWriter, req *http.Request) {
	var cmd assistant.Command
	if err := decode(w, req, &cmd); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	reply, err := r.assistant.Execute(req.Context(), principal(req), cmd).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	resp := assistantResponse{okBody: success, Msg: reply.Message}
	if len(reply.Events) > 0 {
		resp.Events = toEventsJSON(reply.Events)
	}
	if reply.Calendar != nil {
		cal := toCalendarJSON(reply.Calendar)
		resp.Calendar = &cal
	}
	writeJSON(w, http.StatusOK, resp)
}
