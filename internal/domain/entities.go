package domain

import "time"

// RawCollection 对应 Bangumi v0 收藏接口返回的单条原始记录。
// 只声明流水线实际消费的字段，其余内容在反序列化时丢弃。
type RawCollection struct {
	SubjectID int64       `json:"subject_id"`
	Type      int         `json:"type"`
	UpdatedAt string      `json:"updated_at"`
	Subject   *RawSubject `json:"subject"`
}

// RawSubject 是收藏记录内嵌的条目信息。
type RawSubject struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	NameCN string     `json:"name_cn"`
	Score  float64    `json:"score"`
	Images *RawImages `json:"images"`
}

// RawImages 是条目封面在各个尺寸下的地址。
type RawImages struct {
	Large  string `json:"large"`
	Common string `json:"common"`
	Medium string `json:"medium"`
	Small  string `json:"small"`
	Grid   string `json:"grid"`
}

// GameEntry 是规整后的单条游戏记录，创建后不再修改。
type GameEntry struct {
	SubjectID int64
	Name      string
	NameCN    string
	Image     string
	UpdatedAt time.Time
	Score     int
}

// MonthItem 是渲染用的条目投影：封面已改写为代理地址，日期为 MM-DD。
type MonthItem struct {
	SubjectID int64
	Name      string
	NameCN    string
	Image     string
	Date      string
	Score     int
}

// MonthGroup 聚合一个自然月内的条目，Label 为两位数字月份。
type MonthGroup struct {
	Month int
	Label string
	Items []MonthItem
}

// RenderContext 是模板渲染的全部输入，只被消费一次。
type RenderContext struct {
	Username    string
	Year        int
	Total       int
	Months      []MonthGroup
	GeneratedAt string
}

// ViewportSize 是交给渲染器的目标视口尺寸。
type ViewportSize struct {
	Width  int
	Height int
}

// ExportRequest 描述一次报告导出。Records 非 nil 时跳过远端拉取，
// 直接对调用方提供的记录做规整。
type ExportRequest struct {
	Username string
	Year     int
	Records  []RawCollection
}
