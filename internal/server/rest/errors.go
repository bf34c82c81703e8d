package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/betclever/internal/common"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps the service error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrResetTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrorIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrorLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *common.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	switch {
	case code == http.StatusInternalServerError:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		body = errorBody{Error: common.ErrorInternal.Error()}
	case code == http.StatusUnauthorized:
		body = errorBody{Error: common.ErrorUnauthorized.Error()}
		if errors.Is(err, common.ErrTokenExpired) {
			body.Error = common.ErrTokenExpired.Error()
		}
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}
