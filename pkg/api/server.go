package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/documents"
	"github.com/easternmills/millops/pkg/identity"
	"github.com/easternmills/millops/pkg/middleware"
	"github.com/easternmills/millops/pkg/observability"
	"github.com/easternmills/millops/pkg/storage"
)

// Server is the millops HTTP API.
type Server struct {
	router *mux.Router

	users       storage.UserRecordStore
	samples     storage.SampleStore
	orders      storage.OrderStore
	inspections storage.InspectionStore
	docs        storage.DocumentMetaStore
	blobs       documents.BlobStore

	providers *identity.Registry
	sessions  *identity.Manager
	resolver  *access.Resolver
	auditor   *audit.Recorder
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// Options carries the server's dependencies. Redis may be nil, which
// disables rate limiting.
type Options struct {
	Users       storage.UserRecordStore
	Samples     storage.SampleStore
	Orders      storage.OrderStore
	Inspections storage.InspectionStore
	Documents   storage.DocumentMetaStore
	Blobs       documents.BlobStore

	Providers *identity.Registry
	Sessions  *identity.Manager
	Resolver  *access.Resolver
	Auditor   *audit.Recorder
	Logger    *observability.Logger
	Metrics   *observability.Metrics
	Redis     *redis.Client
}

// NewServer creates the API server and wires its routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:      mux.NewRouter(),
		users:       opts.Users,
		samples:     opts.Samples,
		orders:      opts.Orders,
		inspections: opts.Inspections,
		docs:        opts.Documents,
		blobs:       opts.Blobs,
		providers:   opts.Providers,
		sessions:    opts.Sessions,
		resolver:    opts.Resolver,
		auditor:     opts.Auditor,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}

	s.setupRoutes(opts.Redis)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(redisClient *redis.Client) {
	s.router.Use(middleware.NewRequestLogger(s.logger).Handler)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	var limits *middleware.RateLimitMiddleware
	if redisClient != nil {
		limits = middleware.NewRateLimitMiddleware(redisClient)
	}

	// Sign-in flow, no session required. Limited per IP since no principal
	// exists yet.
	public := s.router.PathPrefix("/auth").Subrouter()
	if limits != nil {
		public.Use(limits.PublicHandler)
	}
	public.HandleFunc("/providers", s.listProviders).Methods("GET")
	public.HandleFunc("/{provider}/login", s.login).Methods("GET")
	public.HandleFunc("/{provider}/callback", s.callback).Methods("GET", "POST")

	// Everything under /api/v1 requires a valid session. Access is resolved
	// fresh per request by the auth middleware. The rate limiter comes after
	// SessionAuth so it can key on the resolved principal.
	authed := s.router.PathPrefix("/api/v1").Subrouter()
	authed.Use(middleware.NewSessionAuth(s.sessions, s.resolver, false).Handler)
	if limits != nil {
		authed.Use(limits.Handler)
	}

	authed.HandleFunc("/logout", s.logout).Methods("POST")
	authed.HandleFunc("/me/access", s.myAccess).Methods("GET")
	authed.HandleFunc("/meta/departments", s.listDepartments).Methods("GET")

	// Quality inspections.
	inspections := authed.PathPrefix("/inspections").Subrouter()
	inspections.Handle("", middleware.RequireTab("compliance")(http.HandlerFunc(s.listInspections))).Methods("GET")
	inspections.Handle("/{id}", middleware.RequireTab("compliance")(http.HandlerFunc(s.getInspection))).Methods("GET")
	inspections.Handle("", middleware.RequireEdit("compliance")(http.HandlerFunc(s.createInspection))).Methods("POST")
	inspections.Handle("/{id}", middleware.RequireEdit("compliance")(http.HandlerFunc(s.updateInspection))).Methods("PUT")

	// Development samples.
	samples := authed.PathPrefix("/samples").Subrouter()
	samples.Handle("", middleware.RequireTab("gallery")(http.HandlerFunc(s.listSamples))).Methods("GET")
	samples.Handle("/{id}", middleware.RequireTab("gallery")(http.HandlerFunc(s.getSample))).Methods("GET")
	samples.Handle("", middleware.RequireEdit("create")(http.HandlerFunc(s.createSample))).Methods("POST")
	samples.Handle("/{id}", middleware.RequireEdit("gallery")(http.HandlerFunc(s.updateSample))).Methods("PUT")
	samples.Handle("/{id}", middleware.RequireManage("gallery")(http.HandlerFunc(s.deleteSample))).Methods("DELETE")

	// Buyer orders.
	orders := authed.PathPrefix("/orders").Subrouter()
	orders.Handle("", middleware.RequireTab("orders")(http.HandlerFunc(s.listOrders))).Methods("GET")
	orders.Handle("/{id}", middleware.RequireTab("orders")(http.HandlerFunc(s.getOrder))).Methods("GET")
	orders.Handle("", middleware.RequireEdit("orders")(http.HandlerFunc(s.createOrder))).Methods("POST")
	orders.Handle("/{id}", middleware.RequireEdit("orders")(http.HandlerFunc(s.updateOrder))).Methods("PUT")

	// PDOC documents. Department scoping is enforced in the handlers since
	// the department comes from the request.
	authed.HandleFunc("/documents", s.listDocuments).Methods("GET")
	authed.HandleFunc("/documents", s.uploadDocument).Methods("POST")
	authed.HandleFunc("/documents/{id}", s.getDocumentMeta).Methods("GET")
	authed.HandleFunc("/documents/{id}/content", s.downloadDocument).Methods("GET")
	authed.HandleFunc("/documents/{id}", s.deleteDocument).Methods("DELETE")

	// User administration.
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(access.RoleAdmin))
	admin.HandleFunc("/users", s.listUsers).Methods("GET")
	admin.HandleFunc("/users/{uid}", s.getUser).Methods("GET")
	admin.HandleFunc("/users/{uid}", s.updateUser).Methods("PUT")
	admin.HandleFunc("/audit", s.listAuditEvents).Methods("GET")
}

// Handler returns the server's root handler with tracing instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "millops-api")
}

// Router exposes the raw router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
