package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/adsync"
	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/metrics"
	"github.com/radiusdt/agency-portal/internal/middleware"
	"github.com/radiusdt/agency-portal/internal/portal"
)

// HealthChecker is a backing service the health endpoint reports on.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Portal  *portal.Service
	Sync    *adsync.Service
	Checks  map[string]HealthChecker
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps the HTTP handlers.
type Server struct {
	portal  *portal.Service
	sync    *adsync.Service
	checks  map[string]HealthChecker
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	s := &Server{
		portal:  deps.Portal,
		sync:    deps.Sync,
		checks:  deps.Checks,
		logger:  deps.Logger,
		config:  deps.Config,
		metrics: deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics).Handler)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger).Handler)
	r.Use(middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler)
	r.Use(middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger, deps.Metrics).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	if deps.Config.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Metrics.Path, metrics.Handler())
	}

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", s.handleListClients)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetClient)
			r.Put("/", s.handleSaveClient)
			r.Post("/sync", s.handleSync)
			r.Get("/sync/status", s.handleSyncStatus)
			r.Post("/insights", s.handleInsights)
		})
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", s.handleListCampaigns)
		r.Post("/", s.handleCreateCampaign)
		r.Delete("/", s.handlePurgeCampaigns)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Patch("/{id}/status", s.handleUpdateTaskStatus)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.handleGetSettings)
		r.Put("/", s.handleSaveSettings)
		r.Post("/validate", s.handleValidateToken)
	})

	return r
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.Health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{"status": status, "components": components})
}

// ---- Helpers ----

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrConfigurationMissing):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrUpstreamRejected):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes err using the taxonomy. Upstream rejections carry the vendor
// message unchanged; unexpected errors are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()

	var rejected *apperr.UpstreamRejectedError
	if errors.As(err, &rejected) {
		msg = rejected.Message
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	s.errorResponse(w, msg, code)
}
