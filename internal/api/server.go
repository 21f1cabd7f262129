// Package api provides the HTTP API server and handlers for Dunbar.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dunbarapp/dunbar-server/internal/http/response"
	"github.com/dunbarapp/dunbar-server/internal/ratelimit"
	"github.com/dunbarapp/dunbar-server/internal/sse"
)

// Options tunes the HTTP surface.
type Options struct {
	Version        string
	CORSOrigins    []string
	MaxUploadBytes int64
	CaptureRate    float64
	CaptureBurst   int
}

func (o *Options) setDefaults() {
	if o.Version == "" {
		o.Version = "dev"
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 25 << 20
	}
	if o.CaptureRate <= 0 {
		o.CaptureRate = 2
	}
	if o.CaptureBurst <= 0 {
		o.CaptureBurst = 10
	}
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services       *Services
	db             Pinger
	sseManager     *sse.Manager
	router         *chi.Mux
	api            huma.API
	captureLimiter *ratelimit.KeyedRateLimiter
	opts           Options
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, db Pinger, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	router := chi.NewRouter()

	s := &Server{
		services:       services,
		db:             db,
		sseManager:     sseManager,
		router:         router,
		captureLimiter: ratelimit.New(opts.CaptureRate, opts.CaptureBurst),
		opts:           opts,
		logger:         logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Dunbar API", opts.Version)
	humaConfig.Info.Description = "Photo tagging: a tag registry, tagged capture, and a gallery of tagged photos."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.captureLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Tag-Name", "X-Tag-Color", "X-Created-At"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "method not allowed", s.logger)
	})

	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerPhotoRoutes()
	s.registerGalleryRoutes()

	// Event stream (chi direct, not huma)
	s.router.Get("/api/v1/events", sse.NewHandler(s.sseManager, s.logger.With("component", "sse")).ServeHTTP)
}

// requestLogger logs one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// recoverer turns handler panics into a 500 envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic in handler",
				slog.Any("panic", rec),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("path", r.URL.Path),
			)
			response.InternalError(w, "internal server error", s.logger)
		}()
		next.ServeHTTP(w, r)
	})
}
