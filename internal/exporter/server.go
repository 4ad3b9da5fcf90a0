package exporter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
)

var defaultShutdownTimeout = 5 * time.Second

type httpServer interface {
	ListenAndServe() error
	Shutdown(context.Context) error
}

type ServerConfig struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// MetricsServer serves a registry on /metrics.
type MetricsServer struct {
	cfg      ServerConfig
	registry *prometheus.Registry
	httpSrv  httpServer
	factory  func(addr string, handler http.Handler) httpServer
}

func NewMetricsServer(cfg ServerConfig, registry *prometheus.Registry) *MetricsServer {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &MetricsServer{
		cfg:      cfg,
		registry: registry,
		factory: func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
		},
	}
}

func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run blocks until the context is cancelled or the HTTP server fails.
func (s *MetricsServer) Run(ctx context.Context) error {
	logger := logutil.GetLogger()
	s.httpSrv = s.factory(s.cfg.ListenAddr, s.Handler())

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server started", zap.String("addr", s.cfg.ListenAddr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *MetricsServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpSrv.Shutdown(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logutil.GetLogger().Info("Metrics server stopped")
	return nil
}
