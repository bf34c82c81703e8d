// Package rest is the HTTP/JSON API consumed by the member portal UI.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/betclever/internal/logging"
	"github.com/dmitrijs2005/betclever/internal/server/metrics"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler serves every API route.
type Handler struct {
	auth           *services.AuthService
	member         *services.MemberService
	admin          *services.AdminService
	metrics        *metrics.Metrics
	log            logging.Logger
	ping           func(context.Context) error
	maxUploadBytes int64
	corsOrigins    []string
	blobs          http.Handler
}

// Options carry the optional parts of a Handler.
type Options struct {
	Metrics        *metrics.Metrics
	Logger         logging.Logger
	Ping           func(context.Context) error
	MaxUploadBytes int64
	CORSOrigins    []string
	// Blobs, when set, serves download links under /blobs/.
	Blobs http.Handler
}

func NewHandler(a *services.AuthService, m *services.MemberService, ad *services.AdminService, o Options) *Handler {
	h := &Handler{
		auth:           a,
		member:         m,
		admin:          ad,
		metrics:        o.Metrics,
		log:            o.Logger,
		ping:           o.Ping,
		maxUploadBytes: o.MaxUploadBytes,
		corsOrigins:    o.CORSOrigins,
		blobs:          o.Blobs,
	}
	if h.log == nil {
		h.log = logging.NopLogger{}
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = 20 << 20
	}
	return h
}

// Router builds the chi router with middleware and all routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	if h.blobs != nil {
		r.Handle("/blobs/*", http.StripPrefix("/blobs", h.blobs))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)
		r.Post("/auth/password/forgot", h.forgotPassword)
		r.Post("/auth/password/reset", h.resetPassword)
		r.Get("/meta/statuses", h.meta)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/auth/logout", h.logout)

			r.Get("/me", h.me)
			r.Put("/me/profile", h.updateProfile)
			r.Get("/me/documents", h.documents)
			r.Post("/me/documents/{category}", h.uploadDocuments)
			r.Post("/me/submit", h.submit)

			r.Route("/admin/users", func(r chi.Router) {
				r.Get("/", h.listUsers)
				r.Get("/{id}", h.getUser)
				r.Patch("/{id}", h.updateUser)
				r.Delete("/{id}", h.deleteUser)
				r.Put("/{id}/password", h.setUserPassword)
				r.Post("/{id}/approve", h.approve)
				r.Post("/{id}/reject", h.reject)
				r.Post("/{id}/unlock", h.unlock)
				r.Put("/{id}/community-status", h.setCommunityStatus)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "endpoint not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildMeta())
}
