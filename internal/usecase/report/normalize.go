package report

import (
	"sort"
	"time"

	"bangumi-annual-report/internal/domain"
)

// categoryPlayed 是 Bangumi 收藏状态里的「玩过」。
const categoryPlayed = 2

// placeholderCover 在条目完全没有封面时兜底。
const placeholderCover = "https://lain.bgm.tv/pic/cover/l/c5/c9/1_abcd1234.jpg"

// normalizeEntries 把原始收藏记录过滤、规整为年度游戏条目，按
// updated_at 从新到旧排序。单条记录不合法只跳过该条，不影响整批。
func normalizeEntries(raw []domain.RawCollection, year int) []domain.GameEntry {
	entries := make([]domain.GameEntry, 0, len(raw))
	for _, item := range raw {
		if item.Type != categoryPlayed {
			continue
		}
		updatedAt, ok := parseUpdatedAt(item.UpdatedAt)
		if !ok {
			continue
		}
		if updatedAt.Year() != year {
			continue
		}

		subjectID := item.SubjectID
		var name, nameCN string
		var score int
		if item.Subject != nil {
			if item.Subject.ID != 0 {
				subjectID = item.Subject.ID
			}
			name = item.Subject.Name
			nameCN = item.Subject.NameCN
			score = int(item.Subject.Score)
		}

		entries = append(entries, domain.GameEntry{
			SubjectID: subjectID,
			Name:      name,
			NameCN:    nameCN,
			Image:     coverURL(item.Subject),
			UpdatedAt: updatedAt,
			Score:     score,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries
}

// parseUpdatedAt 解析 ISO-8601 时间戳。带时区信息的转到本地时区，
// 不带的按本地时区原样使用；解析失败整条记录跳过。
func parseUpdatedAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.In(time.Local), true
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

// coverURL 按 common → large → medium 的顺序取封面。common 优先：
// 文件更小，在 142px 的卡片宽度下清晰度足够，large 作为质量兜底。
func coverURL(subject *domain.RawSubject) string {
	if subject != nil && subject.Images != nil {
		for _, u := range []string{subject.Images.Common, subject.Images.Large, subject.Images.Medium} {
			if u != "" {
				return u
			}
		}
	}
	return placeholderCover
}
