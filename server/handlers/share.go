package handlers

import (
	"net/http"
	"strconv"

	"github.com/cyp0633/calshare/server/sharing"
)

type shareJSON struct {
	Token     string `json:"token"`
	InviteURL string `json:"inviteUrl"`
	JoinPath  string `json:"joinPath"`
}

func toShareJSON(s sharing.Share) *shareJSON {
	return &shareJSON{Token: s.Token, InviteURL: s.InviteURL, JoinPath: s.JoinPath}
}

// shareResponse carries a null share when the calendar has no active token.
type shareResponse struct {
	okBody
	Share *shareJSON `json:"share"`
}

type joinResponse struct {
	okBody
	CalendarID   string `json:"calendarId"`
	CalendarName string `json:"calendarName"`
	Role         string `json:"role"`
	Joined       bool   `json:"joined"`
}

func (r *Router) handleInspectShare(w http.ResponseWriter, req *http.Request) {
	share, err := r.sharing.Inspect(req.Context(), principal(req), req.PathValue("id")).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}

	resp := shareResponse{okBody: success}
	if s, ok := share.Get(); ok {
		resp.Share = toShareJSON(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateShare returns the current link, or a new one with ?rotate=true.
func (r *Router) handleGenerateShare(w http.ResponseWriter, req *http.Request) {
	rotate := false
	if raw := req.URL.Query().Get("rotate"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			r.badRequest(w, req, "rotate must be a boolean")
			return
		}
		rotate = v
	}

	share, err := r.sharing.Generate(req.Context(), principal(req), req.PathValue("id"), rotate).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{okBody: success, Share: toShareJSON(share)})
}

func (r *Router) handleRevokeShare(w http.ResponseWriter, req *http.Request) {
	if err := r.sharing.Revoke(req.Context(), principal(req), req.PathValue("id")).Error(); err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeMessage(w, "share link revoked")
}

func (r *Router) handleJoin(w http.ResponseWriter, req *http.Request) {
	res, err := r.sharing.Redeem(req.Context(), principal(req), req.PathValue("token")).Get()
	if err != nil {
		r.writeFailure(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		okBody:       success,
		CalendarID:   res.CalendarID,
		CalendarName: res.CalendarName,
		Role:         res.Role.String(),
		Joined:       res.Joined,
	})
}
