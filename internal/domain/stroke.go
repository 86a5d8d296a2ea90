package domain

import (
	"math"
	"time"
)

// Point 表示像素坐标系中的一个二维点（原点在左上角，y 轴向下）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite 报告该点的两个坐标是否都是有限数。
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// 读取路径上补齐缺失字段时使用的默认值。
const (
	DefaultColor = "#ffffff"
	DefaultWidth = 3.0
)

// Stroke 表示一条已持久化的笔画。
// 点序列保存为像素坐标；渲染层在展示前自行转换到世界坐标。
type Stroke struct {
	ID        string    `json:"id"`         // 客户端生成的 UUID，主键
	Color     string    `json:"color"`      // 颜色（如 "#ff0000"）
	Width     float64   `json:"width"`      // 笔画宽度（像素单位）
	Points    []Point   `json:"points"`     // 有序点列，像素坐标
	CreatedAt time.Time `json:"created_at"` // 由存储引擎在插入时赋值，唯一排序键
}

// Normalize 在读取时应用默认值：空颜色回落到 DefaultColor，
// 非法宽度（缺失、非正、非有限）回落到 DefaultWidth。
func (s *Stroke) Normalize() {
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Width <= 0 || math.IsNaN(s.Width) || math.IsInf(s.Width, 0) {
		s.Width = DefaultWidth
	}
}

// Persistable 报告笔画是否满足持久化的最小要求。
// 少于两个点的笔画永远不会被写入。
func (s *Stroke) Persistable() bool {
	return len(s.Points) >= 2
}
