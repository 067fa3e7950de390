package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig 描述服务的全部配置。
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Asia/Shanghai"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Bangumi struct {
		BaseURL   string        `envconfig:"BGM_API_BASE" default:"https://api.bgm.tv/v0"`
		UserAgent string        `envconfig:"BGM_USER_AGENT" default:"bangumi-annual-report/1.0"`
		Timeout   time.Duration `envconfig:"BGM_TIMEOUT" default:"20s"`
	} `envconfig:""`

	Render struct {
		ChromiumPath string        `envconfig:"CHROMIUM_PATH"`
		Timeout      time.Duration `envconfig:"RENDER_TIMEOUT" default:"40s"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Proxy struct {
		// BaseURL 留空时按本机端口推导，例如 http://127.0.0.1:8080/proxy/image。
		BaseURL  string        `envconfig:"PROXY_BASE_URL"`
		CacheTTL time.Duration `envconfig:"PROXY_CACHE_TTL" default:"24h"`
		Timeout  time.Duration `envconfig:"PROXY_TIMEOUT" default:"20s"`
	} `envconfig:""`
}

// Load 从环境变量加载配置。
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	return cfg
}
