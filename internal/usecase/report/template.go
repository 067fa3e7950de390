package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"bangumi-annual-report/internal/domain"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html"))

// renderHTML 用内嵌模板生成报告页面，纯字符串构造，无副作用。
func renderHTML(rc domain.RenderContext) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.ExecuteTemplate(&buf, "report.html", rc); err != nil {
		return "", fmt.Errorf("渲染模板: %w", err)
	}
	return buf.String(), nil
}
