package bangumi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bangumi-annual-report/internal/domain"
	"bangumi-annual-report/internal/infra/metrics"
)

const defaultBaseURL = "https://api.bgm.tv/v0"

// pageSize 是收藏接口单页条数，与 offset 步长一致。
const pageSize = 30

// subjectTypeGame 是 Bangumi 的游戏条目类型。
const subjectTypeGame = 4

// Client 访问 Bangumi v0 公开接口。
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

var _ domain.CollectionSource = (*Client)(nil)

// NewClient 创建 Bangumi 客户端，所有分页共用同一个 http.Client。
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

type collectionsPage struct {
	Data  []domain.RawCollection `json:"data"`
	Total int                    `json:"total"`
}

// FetchCollections 按 30 条一页拉取用户的全部游戏收藏，直到累计
// 偏移达到接口报告的 total。任何一页失败都会中止整次拉取。
func (c *Client) FetchCollections(ctx context.Context, username string) ([]domain.RawCollection, error) {
	var items []domain.RawCollection
	offset := 0
	for {
		page, err := c.fetchPage(ctx, username, offset)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		offset += pageSize
		if offset >= page.Total {
			break
		}
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, username string, offset int) (collectionsPage, error) {
	query := url.Values{}
	query.Set("subject_type", strconv.Itoa(subjectTypeGame))
	query.Set("limit", strconv.Itoa(pageSize))
	query.Set("offset", strconv.Itoa(offset))
	endpoint := fmt.Sprintf("%s/users/%s/collections?%s", c.baseURL, url.PathEscape(username), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return collectionsPage{}, fmt.Errorf("bangumi: 构造请求: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("bangumi", "collections", start, err)
	if err != nil {
		return collectionsPage{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return collectionsPage{}, domain.ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return collectionsPage{}, fmt.Errorf("%w: HTTP %d", domain.ErrUpstream, resp.StatusCode)
	}

	var page collectionsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return collectionsPage{}, fmt.Errorf("%w: 解析响应: %v", domain.ErrUpstream, err)
	}
	return page, nil
}
