package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bangumi-annual-report/internal/domain"
	"bangumi-annual-report/internal/infra/metrics"
)

// Service 串联拉取、规整、分组、排版和截图，产出年度报告 PNG。
type Service struct {
	source    domain.CollectionSource
	renderer  domain.Renderer
	proxyBase string
	log       zerolog.Logger
	now       func() time.Time
}

var _ domain.ReportService = (*Service)(nil)

// NewService 创建报告服务。proxyBase 是图片代理端点的绝对地址，
// 例如 http://127.0.0.1:8080/proxy/image。
func NewService(source domain.CollectionSource, renderer domain.Renderer, proxyBase string, logger zerolog.Logger) *Service {
	return &Service{source: source, renderer: renderer, proxyBase: proxyBase, log: logger, now: time.Now}
}

// Export 执行完整导出流水线。req.Records 非 nil 时跳过远端拉取；
// 此时即使没有符合条件的条目也渲染一张空报告，远端拉取为空则按
// 未找到处理。
func (s *Service) Export(ctx context.Context, req domain.ExportRequest) ([]byte, error) {
	metrics.IncExportRequest()

	raw := req.Records
	supplied := raw != nil
	if !supplied {
		var err error
		raw, err = s.source.FetchCollections(ctx, req.Username)
		if err != nil {
			metrics.IncExportError("fetch")
			return nil, err
		}
	}

	entries := normalizeEntries(raw, req.Year)
	if len(entries) == 0 && !supplied {
		metrics.IncExportError("empty")
		return nil, fmt.Errorf("%w: %d 年", domain.ErrNoEntries, req.Year)
	}

	months := groupByMonth(entries, s.proxyBase)
	size := viewport(months)

	html, err := renderHTML(domain.RenderContext{
		Username:    req.Username,
		Year:        req.Year,
		Total:       len(entries),
		Months:      months,
		GeneratedAt: s.now().Format("2006-01-02 15:04"),
	})
	if err != nil {
		metrics.IncExportError("template")
		return nil, err
	}

	start := time.Now()
	image, err := s.renderer.Capture(ctx, html, size)
	if err != nil {
		metrics.IncExportError("render")
		return nil, err
	}
	metrics.ObserveRender(start)

	s.log.Debug().
		Str("username", req.Username).
		Int("year", req.Year).
		Int("total", len(entries)).
		Int("height", size.Height).
		Msg("报告导出完成")
	return image, nil
}
