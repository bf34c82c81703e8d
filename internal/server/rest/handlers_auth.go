package rest

import (
	"net/http"

	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/services"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loginDTO{tokensDTO: toTokens(res.Tokens), User: toUser(res.User)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginDTO{tokensDTO: toTokens(res.Tokens), User: toUser(res.User)})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	pair, err := h.auth.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokens(*pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if err := h.auth.Logout(r.Context(), auth.SessionFromContext(r.Context()), in.RefreshToken); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordReset(r.Context(), in.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in services.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.auth.CurrentUser(r.Context(), auth.SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountDTO{User: toUser(acc.User), Profile: toProfile(acc.Profile), Status: toStatus(acc.Status)})
}
