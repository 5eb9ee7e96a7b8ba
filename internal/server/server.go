package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"parking-allocator/internal/logging"
	"parking-allocator/internal/parking"
)

type Options struct {
	Port         string
	ServiceName  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Gatherer backs /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(lot *parking.InstrumentedParkingLot, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}

	handler := NewHandler(lot, opts.ServiceName)

	httpServer := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      NewRouter(handler, opts),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func NewRouter(handler *Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware(opts.ServiceName, opts.TracerProvider))
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/park", handler.ParkVehicles)
		r.Post("/unpark", handler.UnparkVehicle)
		r.Get("/fee/{slot}", handler.QuoteFee)
		r.Get("/showall", handler.ShowAll)
		r.Get("/status", handler.GetStatus)
		r.Post("/entry-points", handler.AddEntryPoint)
		r.Get("/clear", handler.Clear)
		r.Post("/clear", handler.Clear)
	})

	return r
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	logging.Logger().Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger().Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
