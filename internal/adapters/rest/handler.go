package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"bangumi-annual-report/internal/domain"
	"bangumi-annual-report/internal/infra/metrics"
)

// maxProxyImageBytes 限制代理回源图片的体积。
const maxProxyImageBytes = 10 << 20

// Handler 暴露报告导出与图片代理接口。
type Handler struct {
	service  domain.ReportService
	cache    domain.Cache
	cacheTTL time.Duration
	http     *http.Client
	log      zerolog.Logger
	now      func() time.Time
}

// NewHandler 创建 REST 处理器。cache 可以为 nil，此时代理每次回源。
func NewHandler(service domain.ReportService, cache domain.Cache, cacheTTL time.Duration, proxyTimeout time.Duration, logger zerolog.Logger) *Handler {
	if proxyTimeout <= 0 {
		proxyTimeout = 20 * time.Second
	}
	return &Handler{
		service:  service,
		cache:    cache,
		cacheTTL: cacheTTL,
		http:     &http.Client{Timeout: proxyTimeout},
		log:      logger,
		now:      time.Now,
	}
}

// Register 挂载全部路由。
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Post("/export-image", h.handleExport)
	r.Get("/proxy/image", h.handleProxyImage)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "message": "Bangumi Annual Report API"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "请求体不是合法的 JSON")
		return
	}
	req, err := h.parseExportRequest(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := h.service.Export(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			// 渲染器的报错可能携带临时路径等内部细节，只进日志
			h.log.Error().Err(err).Str("username", req.Username).Int("year", req.Year).Msg("导出失败")
			msg = "报告生成失败，请稍后重试"
		}
		writeError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bangumi-%s-%d.png"`, req.Username, req.Year))
	_, _ = w.Write(image)
}

// parseExportRequest 校验并填充默认值：用户名去除首尾空白且必填，
// 年份缺省为当前年，范围 [2000, 2100]。
func (h *Handler) parseExportRequest(fields map[string]json.RawMessage) (domain.ExportRequest, error) {
	var req domain.ExportRequest

	if raw, ok := fields["username"]; ok {
		if err := json.Unmarshal(raw, &req.Username); err != nil {
			return req, fmt.Errorf("%w: username 必须是字符串", domain.ErrValidation)
		}
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return req, fmt.Errorf("%w: username 不能为空", domain.ErrValidation)
	}

	req.Year = h.now().Year()
	if raw, ok := fields["year"]; ok {
		if err := json.Unmarshal(raw, &req.Year); err != nil {
			return req, fmt.Errorf("%w: year 必须是整数", domain.ErrValidation)
		}
	}
	if req.Year < 2000 || req.Year > 2100 {
		return req, fmt.Errorf("%w: year 需在 2000 到 2100 之间", domain.ErrValidation)
	}

	if raw, ok := fields["records"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &req.Records); err != nil {
			return req, fmt.Errorf("%w: records 必须是记录数组", domain.ErrValidation)
		}
	}
	return req, nil
}

func (h *Handler) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		writeError(w, http.StatusBadRequest, "url 参数不是合法的图片地址")
		return
	}

	cacheKey := "imgproxy:" + rawURL
	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), cacheKey); err == nil && len(cached) > 0 {
			metrics.IncProxyCache("hit")
			contentType, data := decodeCachedImage(cached)
			writeImage(w, contentType, data)
			return
		}
		metrics.IncProxyCache("miss")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "url 参数不是合法的图片地址")
		return
	}

	start := time.Now()
	resp, err := h.http.Do(req)
	metrics.ObserveNetworkRequest("proxy", "image", start, err)
	if err != nil {
		writeError(w, http.StatusBadGateway, "图片回源失败")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("图片回源失败: HTTP %d", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyImageBytes))
	if err != nil {
		writeError(w, http.StatusBadGateway, "读取图片失败")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, encodeCachedImage(contentType, data), h.cacheTTL); err != nil {
			h.log.Warn().Err(err).Msg("图片缓存写入失败")
		}
	}

	writeImage(w, contentType, data)
}

// 缓存键里同时存 Content-Type 和图片字节，以 NUL 分隔，
// 保证命中与回源两条路径返回一致的类型。
func encodeCachedImage(contentType string, data []byte) []byte {
	buf := make([]byte, 0, len(contentType)+1+len(data))
	buf = append(buf, contentType...)
	buf = append(buf, 0)
	return append(buf, data...)
}

func decodeCachedImage(raw []byte) (string, []byte) {
	if i := bytes.IndexByte(raw, 0); i > 0 {
		return string(raw[:i]), raw[i+1:]
	}
	return http.DetectContentType(raw), raw
}

func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNoEntries):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
