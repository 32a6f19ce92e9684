package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vramd/internal/manager"
	"vramd/internal/registry"
	"vramd/internal/telemetry"
	"vramd/pkg/types"
)

// Service defines the scheduler methods required by the HTTP API layer.
// *manager.Manager satisfies it.
type Service interface {
	RequestLoad(p manager.LoadParams) (manager.LoadTicket, error)
	Await(ctx context.Context, requestID string) (manager.Outcome, error)
	RequestStatus(requestID string) (manager.Outcome, bool)
	CancelRequest(requestID string) error
	UnloadModel(ctx context.Context, key types.ModelKey, force bool) error
	Optimize(ctx context.Context) (manager.OptimizeResult, error)
	Touch(key types.ModelKey) bool
	ReleaseSession(id string) int
	Sessions() map[string][]string
	Status() types.StatusResponse
	MetricsSummary() types.MetricsSummary
	QueueStatus() types.QueueStatus
	ListModels(provider string, includeUnloaded bool) []types.ModelListing
	Health(ctx context.Context) manager.HealthReport
}

// RegistrySource exposes the model registry file. *registry.Store satisfies it.
type RegistrySource interface {
	Response() types.RegistryResponse
	Reload() registry.Result
}

// Telemetry supplies the latest GPU snapshot.
type Telemetry interface {
	Latest() telemetry.Snapshot
}

// Deps are the collaborators of the HTTP layer. Registry and Telemetry are
// optional; their endpoints answer 503 when unset.
type Deps struct {
	Service   Service
	Registry  RegistrySource
	Telemetry Telemetry
}

type server struct {
	svc Service
	reg RegistrySource
	tel Telemetry
}

// NewMux builds the router.
func NewMux(d Deps) http.Handler {
	s := &server{svc: d.Service, reg: d.Registry, tel: d.Telemetry}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// websocket upgrades must not pass through the compressor
	r.Get("/ws/status", s.handleStatusStream)

	r.Group(func(r chi.Router) {
		// Compression for JSON endpoints
		r.Use(middleware.Compress(5))

		r.Get("/status", s.handleStatus)
		r.Get("/metrics/summary", s.handleMetricsSummary)

		r.Get("/models", s.handleListModels)
		r.Post("/models/load", s.handleLoad)
		r.Post("/models/unload/{provider}/*", s.handleUnload)
		r.Post("/models/touch/{provider}/*", s.handleTouch)
		r.Post("/optimize", s.handleOptimize)

		r.Get("/queue", s.handleQueue)
		r.Get("/queue/{requestID}", s.handleRequestStatus)
		r.Delete("/queue/{requestID}", s.handleCancelRequest)

		r.Get("/sessions", s.handleSessions)
		r.Delete("/sessions/{sessionID}", s.handleReleaseSession)

		r.Get("/registry", s.handleRegistry)
		r.Post("/registry/reload", s.handleRegistryReload)
		r.Get("/processes", s.handleProcesses)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         300,
	}
}
