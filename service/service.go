package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethereum-optimism/infra/op-testdash/metrics"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8080

	readHeaderTimeout = 10 * time.Second
)

// Config configures the listeners of the service.
type Config struct {
	Log     log.Logger
	Host    string
	Port    int
	Handler *Handler

	// MetricsAddr, when set, serves /metrics on a listener of its own as
	// well as on the dashboard listener.
	MetricsAddr string
}

// Service runs the dashboard HTTP server and an optional metrics server.
type Service struct {
	log     log.Logger
	server  *http.Server
	metrics *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	s := &Service{
		log: cfg.Log,
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           cfg.Handler.Router(),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	return s
}

// Start binds the dashboard listener and serves in the background.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info("service starting")

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		metrics.RecordErrorDetails("listen", err)
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		s.log.Info("starting dashboard server", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error running dashboard server", "err", err)
			metrics.RecordErrorDetails("error running dashboard server", err)
		}
	}()

	if s.metrics != nil {
		go func() {
			s.log.Info("starting metrics server", "addr", s.metrics.Addr)
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("error starting metrics server", err)
			}
		}()
	}

	s.log.Info("service started")
	return nil
}

// Addr is the address the dashboard listener is bound to, once started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("service shutting down")

	err := s.server.Shutdown(ctx)
	s.log.Info("dashboard server stopped")

	if s.metrics != nil {
		err = errors.Join(err, s.metrics.Shutdown(ctx))
		s.log.Info("metrics server stopped")
	}

	s.log.Info("service stopped")
	return err
}
