// Package capture 实现单条笔画的采集状态机。
package capture

import (
	"math"

	"inkboard/internal/domain"
	"inkboard/internal/geom"
)

// DecimationThreshold 是相邻两个采集点之间的最小像素距离。
// 高频指针事件里距离不足该阈值的点会被抽稀掉，以约束笔画点密度。
const DecimationThreshold = 1.5

// Capture 跟踪一条正在绘制中的笔画。
// 同一时刻最多只有一条笔画在采集；Idle 状态下除 pointer-down
// 以外的事件一律忽略。Capture 不是并发安全的，调用方负责串行化事件。
type Capture struct {
	screen   geom.Size
	viewport geom.Size

	disabled bool
	drawing  bool
	points   []domain.Point // 像素坐标累积点列
}

// New 创建一个采集器。尺寸后续可通过 SetSizes 更新（窗口缩放等）。
func New(screen, viewport geom.Size) *Capture {
	return &Capture{screen: screen, viewport: viewport}
}

// SetSizes 更新屏幕与视口尺寸。
func (c *Capture) SetSizes(screen, viewport geom.Size) {
	c.screen = screen
	c.viewport = viewport
}

// SetDisabled 切换采集开关。禁用期间所有事件都被忽略；
// 绘制中途被禁用时，进行中的笔画直接丢弃，不会补发完成事件。
func (c *Capture) SetDisabled(disabled bool) {
	c.disabled = disabled
	if disabled && c.drawing {
		c.drawing = false
		c.points = nil
	}
}

// Drawing 报告当前是否处于绘制状态。
func (c *Capture) Drawing() bool {
	return c.drawing
}

// PointerDown 处理按下事件：以世界坐标换算出的像素点开始新笔画。
func (c *Capture) PointerDown(wx, wy float64) {
	if c.disabled || c.drawing || !c.sizesValid() {
		return
	}
	px, py := geom.WorldToPixel(wx, wy, c.screen, c.viewport)
	c.drawing = true
	c.points = []domain.Point{{X: px, Y: py}}
}

// PointerMove 处理移动事件：与上一个累积点的欧氏距离达到
// DecimationThreshold 时才追加，否则丢弃。
func (c *Capture) PointerMove(wx, wy float64) {
	if c.disabled || !c.drawing || !c.sizesValid() {
		return
	}
	px, py := geom.WorldToPixel(wx, wy, c.screen, c.viewport)
	if len(c.points) > 0 {
		last := c.points[len(c.points)-1]
		if math.Hypot(px-last.X, py-last.Y) < DecimationThreshold {
			return
		}
	}
	c.points = append(c.points, domain.Point{X: px, Y: py})
}

// PointerUp 处理抬起事件：返回累积点列的副本并回到 Idle。
// 第二个返回值为 false 表示当前没有进行中的笔画（事件被忽略）。
// 点数下限由调用方把关，这里不论长短一律上报。
func (c *Capture) PointerUp() ([]domain.Point, bool) {
	if c.disabled || !c.drawing {
		return nil, false
	}
	finished := make([]domain.Point, len(c.points))
	copy(finished, c.points)
	c.drawing = false
	c.points = nil
	return finished, true
}

func (c *Capture) sizesValid() bool {
	return c.screen.Valid() && c.viewport.Valid()
}
