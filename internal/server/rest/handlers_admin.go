package rest

import (
	"net/http"

	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type unlockRequest struct {
	Field string `json:"field"`
}

type communityRequest struct {
	Status string `json:"status"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListUsers(r.Context(), auth.SessionFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]userSummaryDTO, 0, len(list))
	for _, s := range list {
		out = append(out, userSummaryDTO{userDTO: toUser(s.User), Status: toStatus(s.Status)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	d, err := h.admin.GetUser(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userDetailDTO{
		User:      toUser(d.User),
		Profile:   toProfile(d.Profile),
		Status:    toStatus(d.Status),
		Documents: toDocuments(d.Documents),
	})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in services.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.admin.UpdateUser(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setUserPassword(w http.ResponseWriter, r *http.Request) {
	var in services.SetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.admin.SetUserPassword(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r)(h.admin.Approve(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id")))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r)(h.admin.Reject(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id")))
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	var in unlockRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStatus(w, r)(h.admin.UnlockField(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in.Field))
}

func (h *Handler) setCommunityStatus(w http.ResponseWriter, r *http.Request) {
	var in communityRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeStatus(w, r)(h.admin.SetCommunityStatus(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in.Status))
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request) func(*models.UserStatus, error) {
	return func(st *models.UserStatus, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toStatus(*st))
	}
}
