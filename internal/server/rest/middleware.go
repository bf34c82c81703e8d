package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			h.log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// authenticate requires a valid bearer access token and stores the
// resulting session in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, common.ErrorUnauthorized)
			return
		}
		session, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	v := r.Header.Get(common.AuthorizationHeaderName)
	if len(v) <= len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	t := strings.TrimSpace(v[len(common.BearerPrefix):])
	return t, t != ""
}
