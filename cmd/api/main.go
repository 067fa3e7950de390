package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"bangumi-annual-report/internal/adapters/bangumi"
	"bangumi-annual-report/internal/adapters/chromium"
	"bangumi-annual-report/internal/adapters/rest"
	"bangumi-annual-report/internal/domain"
	"bangumi-annual-report/internal/infra/cache"
	"bangumi-annual-report/internal/infra/config"
	httpinfra "bangumi-annual-report/internal/infra/http"
	applog "bangumi-annual-report/internal/infra/log"
	"bangumi-annual-report/internal/infra/metrics"
	"bangumi-annual-report/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	if loc, err := time.LoadLocation(cfg.TZ); err == nil {
		time.Local = loc
	} else {
		logger.Warn().Err(err).Str("tz", cfg.TZ).Msg("api: 无法加载时区，沿用系统默认")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	execPath, err := chromium.Locate(cfg.Render.ChromiumPath)
	if err != nil {
		// 服务照常启动，导出请求会得到明确的渲染器缺失错误
		logger.Warn().Err(err).Msg("api: 未找到可用的 Chromium")
	}
	renderer := chromium.NewRenderer(execPath, cfg.Render.Timeout, logger.With().Str("component", "chromium").Logger())

	source := bangumi.NewClient(cfg.Bangumi.BaseURL, cfg.Bangumi.UserAgent, cfg.Bangumi.Timeout)

	var imageCache domain.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		imageCache = cache.NewRedis(client)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("api: 图片代理缓存已启用")
	}

	proxyBase := cfg.Proxy.BaseURL
	if proxyBase == "" {
		// 截图页面以 file:// 打开，封面代理地址必须是绝对 URL
		proxyBase = fmt.Sprintf("http://127.0.0.1:%d/proxy/image", cfg.Port)
	}

	service := report.NewService(source, renderer, proxyBase, logger.With().Str("component", "report").Logger())
	handler := rest.NewHandler(service, imageCache, cfg.Proxy.CacheTTL, cfg.Proxy.Timeout, logger.With().Str("component", "rest").Logger())

	srv := httpinfra.NewServer(logger)
	handler.Register(srv.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api: 服务器已停止")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: 正在关停")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
