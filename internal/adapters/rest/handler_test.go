package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"bangumi-annual-report/internal/domain"
)

type stubService struct {
	image   []byte
	err     error
	lastReq domain.ExportRequest
	calls   int
}

func (s *stubService) Export(ctx context.Context, req domain.ExportRequest) ([]byte, error) {
	s.calls++
	s.lastReq = req
	return s.image, s.err
}

func newTestHandler(service *stubService) (*Handler, chi.Router) {
	h := NewHandler(service, nil, time.Hour, 5*time.Second, zerolog.Nop())
	h.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.Local) }
	r := chi.NewRouter()
	h.Register(r)
	return h, r
}

func doRequest(r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestExportSuccess(t *testing.T) {
	service := &stubService{image: []byte("png-bytes")}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodPost, "/export-image", `{"username":" sai ","year":2024}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("期望 image/png，拿到 %s", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="bangumi-sai-2024.png"` {
		t.Fatalf("下载文件名不对: %s", got)
	}
	if service.lastReq.Username != "sai" {
		t.Fatalf("用户名应去除首尾空白: %q", service.lastReq.Username)
	}
	if service.lastReq.Records != nil {
		t.Fatal("未提供 records 时不应传给服务")
	}
}

func TestExportDefaultsYear(t *testing.T) {
	service := &stubService{image: []byte("png")}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodPost, "/export-image", `{"username":"sai"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d", rec.Code)
	}
	if service.lastReq.Year != 2024 {
		t.Fatalf("缺省年份应为当前年: %d", service.lastReq.Year)
	}
}

func TestExportValidation(t *testing.T) {
	service := &stubService{image: []byte("png")}
	_, router := newTestHandler(service)

	cases := []struct {
		name string
		body string
	}{
		{"用户名缺失", `{"year":2024}`},
		{"用户名全空白", `{"username":"   "}`},
		{"年份过小", `{"username":"sai","year":1999}`},
		{"年份过大", `{"username":"sai","year":2101}`},
		{"非法 JSON", `{"username":`},
		{"records 不是数组", `{"username":"sai","records":42}`},
	}
	for _, tc := range cases {
		rec := doRequest(router, http.MethodPost, "/export-image", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: 期望 400，拿到 %d", tc.name, rec.Code)
		}
	}
	if service.calls != 0 {
		t.Fatalf("参数不合法时不应调用服务，调用了 %d 次", service.calls)
	}
}

func TestExportPassesSuppliedRecords(t *testing.T) {
	service := &stubService{image: []byte("png")}
	_, router := newTestHandler(service)

	body := `{"username":"sai","year":2024,"records":[{"subject_id":1,"type":2,"updated_at":"2024-03-15T10:00:00Z"}]}`
	rec := doRequest(router, http.MethodPost, "/export-image", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d", rec.Code)
	}
	if len(service.lastReq.Records) != 1 || service.lastReq.Records[0].SubjectID != 1 {
		t.Fatalf("records 应原样传给服务: %+v", service.lastReq.Records)
	}
}

func TestExportEmptyRecordsArrayStillSupplied(t *testing.T) {
	service := &stubService{image: []byte("png")}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodPost, "/export-image", `{"username":"sai","year":2024,"records":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d", rec.Code)
	}
	if service.lastReq.Records == nil {
		t.Fatal("空数组也算调用方提供了记录")
	}
}

func TestExportErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrNoEntries, http.StatusNotFound},
		{domain.ErrUpstream, http.StatusBadGateway},
		{domain.ErrRender, http.StatusInternalServerError},
		{domain.ErrRendererNotFound, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		service := &stubService{err: tc.err}
		_, router := newTestHandler(service)
		rec := doRequest(router, http.MethodPost, "/export-image", `{"username":"sai","year":2024}`)
		if rec.Code != tc.want {
			t.Fatalf("%v: 期望 %d，拿到 %d", tc.err, tc.want, rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("错误响应应为 JSON: %s", rec.Header().Get("Content-Type"))
		}
	}
}

func TestProxyImagePassThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer upstream.Close()

	service := &stubService{}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodGet, "/proxy/image?url="+upstream.URL+"/cover.jpg", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d", rec.Code)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("应原样转发图片字节: %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("应透传上游 Content-Type: %s", got)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "max-age=86400") {
		t.Fatalf("应设置长缓存: %s", got)
	}
}

func TestProxyImageRejectsBadURL(t *testing.T) {
	service := &stubService{}
	_, router := newTestHandler(service)

	for _, target := range []string{"", "notaurl", "ftp://example.com/a.png"} {
		rec := doRequest(router, http.MethodGet, "/proxy/image?url="+target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: 期望 400，拿到 %d", target, rec.Code)
		}
	}
}

func TestProxyImageUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	service := &stubService{}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodGet, "/proxy/image?url="+upstream.URL+"/gone.jpg", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("期望 502，拿到 %d", rec.Code)
	}
}

var errCacheMiss = errors.New("缓存未命中")

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func TestProxyImageUsesCache(t *testing.T) {
	var upstreamCalls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("fresh"))
	}))
	defer upstream.Close()

	service := &stubService{}
	cache := &memoryCache{data: map[string][]byte{}}
	h := NewHandler(service, cache, time.Hour, 5*time.Second, zerolog.Nop())
	router := chi.NewRouter()
	h.Register(router)

	target := "/proxy/image?url=" + upstream.URL + "/cover.png"
	first := doRequest(router, http.MethodGet, target, "")
	if first.Code != http.StatusOK || upstreamCalls != 1 {
		t.Fatalf("第一次应回源: code=%d calls=%d", first.Code, upstreamCalls)
	}
	second := doRequest(router, http.MethodGet, target, "")
	if second.Code != http.StatusOK {
		t.Fatalf("期望 200，拿到 %d", second.Code)
	}
	if upstreamCalls != 1 {
		t.Fatalf("第二次应命中缓存，不再回源: %d", upstreamCalls)
	}
	if second.Body.String() != "fresh" {
		t.Fatalf("缓存内容不对: %q", second.Body.String())
	}
	if hit, miss := second.Header().Get("Content-Type"), first.Header().Get("Content-Type"); hit != miss {
		t.Fatalf("命中与回源的 Content-Type 应一致: %q vs %q", hit, miss)
	}
	if got := second.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("缓存命中应保留上游类型: %q", got)
	}
}

func TestExportInternalErrorHidesDetail(t *testing.T) {
	renderErr := fmt.Errorf("%w: exit status 1（输出: /tmp/bgm-report-x/report-1.html）", domain.ErrRender)
	service := &stubService{err: renderErr}
	_, router := newTestHandler(service)

	rec := doRequest(router, http.MethodPost, "/export-image", `{"username":"sai","year":2024}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("期望 500，拿到 %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/tmp/") {
		t.Fatalf("5xx 响应不应泄露内部路径: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "报告生成失败") {
		t.Fatalf("应返回统一的错误提示: %s", rec.Body.String())
	}
}
