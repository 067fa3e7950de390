package domain

import (
	"context"
	"time"
)

// CollectionSource 拉取一个用户的全部游戏收藏。
type CollectionSource interface {
	FetchCollections(ctx context.Context, username string) ([]RawCollection, error)
}

// Renderer 把一段 HTML 按指定视口栅格化为 PNG 字节。
type Renderer interface {
	Capture(ctx context.Context, html string, size ViewportSize) ([]byte, error)
}

// ReportService 负责完整的年度报告导出流水线。
type ReportService interface {
	Export(ctx context.Context, req ExportRequest) ([]byte, error)
}

// Cache 是带 TTL 的字节缓存。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
