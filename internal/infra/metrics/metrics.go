package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ExportRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "export_requests_total",
		Help: "报告导出请求总数",
	})
	ExportErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_errors_total",
		Help: "按流水线阶段统计的导出失败次数",
	}, []string{"stage"})
	RenderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_seconds",
		Help:    "无头浏览器截图耗时",
		Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 20, 30, 40},
	})
	ProxyCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_cache_total",
		Help: "图片代理的缓存命中统计",
	}, []string{"result"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "上游网络请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "上游网络请求次数",
	}, []string{"component", "operation", "status"})
)

// MustRegister 注册全部指标。
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ExportRequestsTotal,
		ExportErrorsTotal,
		RenderSeconds,
		ProxyCacheTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer 启动带 /metrics 端点的 HTTP 服务。
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest 记录一次上游请求的耗时和结果。
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// ObserveRender 记录一次截图的耗时。
func ObserveRender(start time.Time) {
	RenderSeconds.Observe(time.Since(start).Seconds())
}

// IncExportRequest 增加导出请求计数。
func IncExportRequest() {
	ExportRequestsTotal.Inc()
}

// IncExportError 按阶段增加导出失败计数。
func IncExportError(stage string) {
	ExportErrorsTotal.WithLabelValues(stage).Inc()
}

// IncProxyCache 记录图片代理的缓存命中或未命中。
func IncProxyCache(result string) {
	ProxyCacheTotal.WithLabelValues(result).Inc()
}
