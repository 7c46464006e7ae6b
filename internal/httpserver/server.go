// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/example/checkout-gateway/internal/gateway"
)

const serviceName = "checkout-gateway"

const DefaultAllowedOrigin = "http://localhost:3001"

type Options struct {
	Addr          string
	CORSEnabled   bool
	AllowedOrigin string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

type APIServer struct {
	router     *mux.Router
	handler    http.Handler
	opts       Options
	corsOrigin string
	logger     *slog.Logger
	srv        *http.Server
}

func NewAPIServer(g *gateway.Gateway, opts Options) *APIServer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = DefaultAllowedOrigin
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &APIServer{
		router: mux.NewRouter(),
		opts:   opts,
		logger: opts.Logger.With("component", "http"),
	}
	if opts.CORSEnabled {
		s.corsOrigin = opts.AllowedOrigin
	}
	s.setupRoutes(g)

	var h http.Handler = preflight(s.corsOrigin, s.router)
	if opts.CORSEnabled {
		// rs/cors adds Vary for browser requests; preflight and withCORS
		// overwrite the Allow-* headers with the fixed set.
		h = cors.New(cors.Options{
			AllowedOrigins:     []string{opts.AllowedOrigin},
			AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:     []string{corsAllowHeaders},
			OptionsPassthrough: true,
		}).Handler(h)
	}
	h = metricsMiddleware(h)
	s.handler = requestContext(s.logger, h)

	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *APIServer) setupRoutes(g *gateway.Gateway) {
	s.router.HandleFunc("/health", withCORS(s.corsOrigin, healthHandler)).Methods(http.MethodGet)
	s.router.HandleFunc("/create-payment-intent",
		withCORS(s.corsOrigin, gateway.CreatePaymentIntentHandler(g))).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// a known path with the wrong method is still "Not found"
	s.router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(notFoundHandler)
}

func (s *APIServer) Handler() http.Handler { return s.handler }

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "Not found")
}

// Serve runs the server on lis until ctx is cancelled, then shuts down
// gracefully, letting in-flight processor calls finish within ShutdownTimeout.
func (s *APIServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("checkout gateway listening", "addr", lis.Addr().String())
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *APIServer) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}
