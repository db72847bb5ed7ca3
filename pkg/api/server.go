package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sta4152/datahub/pkg/httputil"
	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage"
)

// DefaultMaxBodyBytes bounds validate request bodies
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Options configures a Server
type Options struct {
	// Store, when set, answers field-name lookups
	Store           storage.SpecStore
	Metrics         *observability.Metrics
	MetricsRegistry *prometheus.Registry
	Health          *observability.HealthChecker
	Logger          *observability.Logger
	MaxBodyBytes    int64
}

// Server handles the registry HTTP API
type Server struct {
	registry *registry.Registry
	store    storage.SpecStore
	logger   *observability.Logger
	validate *validator.Validate
	router   *mux.Router
	handler  http.Handler
}

// NewServer creates a server for reg and sets up its routes
func NewServer(reg *registry.Registry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	s := &Server{
		registry: reg,
		store:    opts.Store,
		logger:   logger,
		validate: validator.New(),
		router:   mux.NewRouter(),
	}
	s.setupRoutes(opts, maxBody)

	s.handler = otelhttp.NewHandler(
		httputil.Chain(
			httputil.RequestIDMiddleware(logger),
			httputil.LoggingMiddleware,
			httputil.RecoveryMiddleware,
		)(s.router),
		"datahub-registry",
	)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options, maxBody int64) {
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/aspects", s.listAspects).Methods(http.MethodGet)
	v1.HandleFunc("/aspects/{name}", s.getAspect).Methods(http.MethodGet)
	v1.HandleFunc("/aspects/{name}/searchable-fields", s.getAspectFields).Methods(http.MethodGet)
	v1.HandleFunc("/searchable-fields", s.findFields).Methods(http.MethodGet)
	v1.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/reload", s.reload).Methods(http.MethodPost)
	v1.Handle("/validate", httputil.MaxBytesMiddleware(maxBody)(http.HandlerFunc(s.validateDocuments))).
		Methods(http.MethodPost)

	if opts.Health != nil {
		s.router.Handle("/health", opts.Health).Methods(http.MethodGet)
	}
	if opts.MetricsRegistry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(opts.MetricsRegistry)).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
