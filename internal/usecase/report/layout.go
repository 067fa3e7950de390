package report

import "bangumi-annual-report/internal/domain"

const (
	// viewportWidth 是固定的截图宽度，与页面样式匹配。
	viewportWidth = 1600

	// 头部与尾部（含阴影）的固定高度预留。
	headerAllowance = 250
	footerAllowance = 150

	// 每个月份分组之间的间距。
	groupGap = 24

	// 网格固定 10 列，单行高度为卡片高加行距。
	gridColumns = 10
	rowHeight   = 312
)

// estimateHeight 按条目分布推算截图高度。纯函数，每次请求重算。
func estimateHeight(months []domain.MonthGroup) int {
	height := headerAllowance + footerAllowance
	for _, group := range months {
		rows := (len(group.Items) + gridColumns - 1) / gridColumns
		height += groupGap + rows*rowHeight
	}
	return height
}

// viewport 组合固定宽度与推算高度。
func viewport(months []domain.MonthGroup) domain.ViewportSize {
	return domain.ViewportSize{Width: viewportWidth, Height: estimateHeight(months)}
}
