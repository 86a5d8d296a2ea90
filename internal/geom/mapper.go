// Package geom 提供像素坐标与渲染视口世界坐标之间的纯函数转换。
//
// 像素坐标：原点在屏幕左上角，y 轴向下，范围 [0, screen.Width] x [0, screen.Height]。
// 世界坐标：原点在视口中心，y 轴向上，范围 [-viewport.Width/2, viewport.Width/2] 等。
package geom

// Size 表示一个矩形区域的宽高。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid 报告两个维度是否都为正。
// 维度为零时转换会除零，调用方必须先保证尺寸合法。
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// PixelToWorld 将像素坐标映射到世界坐标。
func PixelToWorld(px, py float64, screen, viewport Size) (wx, wy float64) {
	wx = (px/screen.Width)*viewport.Width - viewport.Width/2
	wy = viewport.Height/2 - (py/screen.Height)*viewport.Height
	return wx, wy
}

// WorldToPixel 是 PixelToWorld 的精确逆变换。
func WorldToPixel(wx, wy float64, screen, viewport Size) (px, py float64) {
	px = (wx + viewport.Width/2) / viewport.Width * screen.Width
	py = (viewport.Height/2 - wy) / viewport.Height * screen.Height
	return px, py
}
