package report

import (
	"fmt"
	"net/url"
	"sort"

	"bangumi-annual-report/internal/domain"
)

// groupByMonth 把条目按自然月分桶，月份从大到小排列；
// 桶内保持规整阶段的从新到旧顺序。proxyBase 是图片代理端点的
// 绝对地址：截图页面通过 file:// 打开，相对地址会被解析到本地
// 文件系统，封面必须带完整的 http(s) 前缀才能回到服务本身。
func groupByMonth(entries []domain.GameEntry, proxyBase string) []domain.MonthGroup {
	buckets := make(map[int][]domain.MonthItem)
	for _, entry := range entries {
		month := int(entry.UpdatedAt.Month())
		buckets[month] = append(buckets[month], projectItem(entry, proxyBase))
	}

	months := make([]int, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(months)))

	groups := make([]domain.MonthGroup, 0, len(months))
	for _, month := range months {
		groups = append(groups, domain.MonthGroup{
			Month: month,
			Label: fmt.Sprintf("%02d", month),
			Items: buckets[month],
		})
	}
	return groups
}

func projectItem(entry domain.GameEntry, proxyBase string) domain.MonthItem {
	return domain.MonthItem{
		SubjectID: entry.SubjectID,
		Name:      entry.Name,
		NameCN:    entry.NameCN,
		Image:     proxyBase + "?url=" + url.QueryEscape(entry.Image),
		Date:      entry.UpdatedAt.Format("01-02"),
		Score:     entry.Score,
	}
}
