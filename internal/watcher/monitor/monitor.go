package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"eos-watcher/internal/watcher/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type MetricsServer struct {
	cfg    config.MonitorConfig
	tl     *zap.Logger
	server *http.Server
}

// NewMetricsServer handler 为空时只暴露 /metrics
func NewMetricsServer(cfg config.MonitorConfig, handler http.Handler, tl *zap.Logger) *MetricsServer {
	if !cfg.Enable || cfg.Addr == "" {
		return &MetricsServer{cfg: cfg, tl: tl}
	}

	if handler == nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		handler = mux
	}

	return &MetricsServer{
		cfg: cfg,
		tl:  tl,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run 启动指标暴露服务
func (s *MetricsServer) Run() {
	if s.server == nil {
		return // disabled
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.tl.Error("HTTP server stopped", zap.String("addr", s.cfg.Addr), zap.Error(err))
		}
	}()
}

// Stop 优雅关闭 HTTP 服务
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil // disabled
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
