// Package render 定义渲染侧消费的场景模型。
// 具体的渲染者（本仓库里是 WebSocket Hub，把场景广播给浏览器端的
// 3D 视图）只需要实现 Renderer 接口。
package render

import "inkboard/internal/domain"

// Point 表示世界坐标系中的一个点（原点在视口中心，y 轴向上）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polyline 是一条待绘制的世界坐标折线。
type Polyline struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// Scene 是一帧完整的可见状态：笔画折线加上已导入的点云。
type Scene struct {
	Ready           bool                `json:"ready"`
	GeometryCapable bool                `json:"geometry_capable"`
	Strokes         []Polyline          `json:"strokes"`
	Clouds          []domain.PointCloud `json:"clouds"`
}

// Renderer 接受场景并负责呈现。实现不得长时间阻塞调用方。
type Renderer interface {
	RenderScene(scene Scene)
}
