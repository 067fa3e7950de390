package chromium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bangumi-annual-report/internal/domain"
)

// lookupNames 是 PATH 中依次尝试的可执行文件名。
var lookupNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// wellKnownPaths 是 PATH 之外的常见安装位置。
var wellKnownPaths = []string{
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// Locate 返回可用的浏览器可执行文件路径。显式配置优先；
// 找不到时立即失败，而不是等到调起一个不存在的二进制。
func Locate(configured string) (string, error) {
	if configured != "" {
		if fileExists(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%w: %s 不存在", domain.ErrRendererNotFound, configured)
	}
	for _, name := range lookupNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range wellKnownPaths {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", domain.ErrRendererNotFound
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// Renderer 通过一次性的无头浏览器进程把 HTML 截图为 PNG。
type Renderer struct {
	execPath string
	timeout  time.Duration
	log      zerolog.Logger
}

var _ domain.Renderer = (*Renderer)(nil)

// NewRenderer 创建渲染器。execPath 为空表示主机上没有可用浏览器，
// 此时每次 Capture 直接返回 ErrRendererNotFound。
func NewRenderer(execPath string, timeout time.Duration, logger zerolog.Logger) *Renderer {
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &Renderer{execPath: execPath, timeout: timeout, log: logger}
}

// Capture 把 markup 写入独立命名的临时文件，调起无头浏览器按指定
// 视口截图，读回 PNG 字节。无论成败，临时目录都会被整体删除。
func (r *Renderer) Capture(ctx context.Context, html string, size domain.ViewportSize) ([]byte, error) {
	if r.execPath == "" {
		return nil, domain.ErrRendererNotFound
	}

	dir, err := os.MkdirTemp("", "bgm-report-")
	if err != nil {
		return nil, fmt.Errorf("%w: 创建临时目录: %v", domain.ErrRender, err)
	}
	defer os.RemoveAll(dir)

	id := uuid.New().String()
	inputPath := filepath.Join(dir, "report-"+id+".html")
	outputPath := filepath.Join(dir, "report-"+id+".png")

	if err := os.WriteFile(inputPath, []byte(html), 0o600); err != nil {
		return nil, fmt.Errorf("%w: 写入页面文件: %v", domain.ErrRender, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.execPath, buildArgs(inputPath, outputPath, size)...)
	output, err := cmd.CombinedOutput()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: 截图超时（%s）", domain.ErrRender, r.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v（输出: %s）", domain.ErrRender, err, trimOutput(output))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: 浏览器未生成截图文件: %v", domain.ErrRender, err)
	}
	r.log.Debug().Int("width", size.Width).Int("height", size.Height).Int("bytes", len(data)).Msg("截图完成")
	return data, nil
}

func buildArgs(inputPath, outputPath string, size domain.ViewportSize) []string {
	return []string{
		"--headless",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--hide-scrollbars",
		fmt.Sprintf("--window-size=%d,%d", size.Width, size.Height),
		"--screenshot=" + outputPath,
		"file://" + inputPath,
	}
}

func trimOutput(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
