package handlers

import (
	"net/http"

	"github.com/cyp0633/calshare/server/calendars"
)

type nameRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type calendarListResponse struct {
	okBody
	Calendars []summaryJSON `json:"calendars"`
}

type searchHitJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	okBody
	Calendars []searchHitJSON `json:"calendars"`
}

type calendarResponse struct {
	okBody
	Calendar calendarJSON `json:"calendar"`
}

type memberListResponse struct {
	okBody
	Members []memberJSON `json:"members"`
}

type memberResponse struct {
	okBody
	Member memberJSON `json:"member"`
}

func (r *Router) handleListCalendars(w http.ResponseWriter, req *http.Request) {
	list, err := r.calendars.ListForUser(req.Context(), principal(req)).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	out := make([]summaryJSON, 0, len(list))
	for _, s := range list {
		out = append(out, toSummaryJSON(s))
	}
	writeJSON(w, http.StatusOK, calendarListResponse{okBody: success, Calendars: out})
}

func (r *Router) handleCreateCalendar(w http.ResponseWriter, req *http.Request) {
	var body nameRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	cal, err := r.calendars.Create(req.Context(), principal(req), body.Name).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, calendarResponse{okBody: success, Calendar: toCalendarJSON(cal)})
}

func (r *Router) handleSearchCalendars(w http.ResponseWriter, req *http.Request) {
	hits, err := r.calendars.Search(req.Context(), req.URL.Query().Get("keyword")).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	out := make([]searchHitJSON, 0, len(hits))
	for _, h := range hits {
		out = append(out, searchHitJSON{ID: h.ID, Name: h.Name})
	}
	writeJSON(w, http.StatusOK, searchResponse{okBody: success, Calendars: out})
}

func (r *Router) handleRenameCalendar(w http.ResponseWriter, req *http.Request) {
	var body nameRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	cal, err := r.calendars.Rename(req.Context(), principal(req), req.PathValue("id"), body.Name).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, calendarResponse{okBody: success, Calendar: toCalendarJSON(cal)})
}

func (r *Router) handleDeleteCalendar(w http.ResponseWriter, req *http.Request) {
	if err := r.calendars.Delete(req.Context(), principal(req), req.PathValue("id")).Error(); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeMessage(w, "calendar deleted")
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	members, err := r.calendars.ListMembers(req.Context(), principal(req), req.PathValue("id")).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	out := make([]memberJSON, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberJSON(m))
	}
	writeJSON(w, http.StatusOK, memberListResponse{okBody: success, Members: out})
}

func toMemberJSON(m calendars.Member) memberJSON {
	return memberJSON{UserID: m.UserID, Name: m.Name, Email: m.Email, Role: m.Role.String()}
}

func (r *Router) handleAddMember(w http.ResponseWriter, req *http.Request) {
	var body memberRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	m, err := r.calendars.AddMember(req.Context(), principal(req), req.PathValue("id"), body.Email, body.Role).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{okBody: success, Member: toMemberJSON(m)})
}

func (r *Router) handleUpdateMember(w http.ResponseWriter, req *http.Request) {
	var body memberRequest
	if err := decode(w, req, &body); err != nil {
		r.badRequest(w, req, "%v", err)
		return
	}

	m, err := r.calendars.UpdateMemberRole(req.Context(), principal(req), req.PathValue("id"), req.PathValue("memberId"), body.Role).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{okBody: success, Member: memberJSON{UserID: m.UserID, Role: m.Role.String()}})
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	if err := r.calendars.RemoveMember(req.Context(), principal(req), req.PathValue("id"), req.PathValue("memberId")).Error(); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeMessage(w, "member removed")
}

func (r *Router) handleLeave(w http.ResponseWriter, req *http.Request) {
	if err := r.calendars.Leave(req.Context(), principal(req), req.PathValue("id")).Error(); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeMessage(w, "left the calendar")
}
