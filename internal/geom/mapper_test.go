package geom_test

import (
	"testing"

	"inkboard/internal/geom"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

func TestPixelToWorld_Corners(t *testing.T) {
	screen := geom.Size{Width: 800, Height: 600}
	viewport := geom.Size{Width: 10, Height: 7.5}

	// 左上角像素 (0,0) 对应世界坐标左上角 (-w/2, +h/2)
	wx, wy := geom.PixelToWorld(0, 0, screen, viewport)
	assert.InDelta(t, -5.0, wx, epsilon)
	assert.InDelta(t, 3.75, wy, epsilon)

	// 右下角像素对应世界坐标右下角
	wx, wy = geom.PixelToWorld(800, 600, screen, viewport)
	assert.InDelta(t, 5.0, wx, epsilon)
	assert.InDelta(t, -3.75, wy, epsilon)

	// 屏幕中心对应世界原点
	wx, wy = geom.PixelToWorld(400, 300, screen, viewport)
	assert.InDelta(t, 0, wx, epsilon)
	assert.InDelta(t, 0, wy, epsilon)
}

func TestWorldToPixel_Center(t *testing.T) {
	screen := geom.Size{Width: 1024, Height: 768}
	viewport := geom.Size{Width: 16, Height: 12}

	px, py := geom.WorldToPixel(0, 0, screen, viewport)
	assert.InDelta(t, 512, px, epsilon)
	assert.InDelta(t, 384, py, epsilon)
}

// 往返性质：worldToPixel(pixelToWorld(p)) ≈ p，对任意有限输入成立。
func TestRoundTrip(t *testing.T) {
	screen := geom.Size{Width: 1920, Height: 1080}
	viewport := geom.Size{Width: 12.8, Height: 7.2}

	cases := []struct{ px, py float64 }{
		{0, 0},
		{1920, 1080},
		{960, 540},
		{1.5, 1.5},
		{123.456, 789.012},
		{-50, -50},     // 越界的像素值同样应该可逆
		{2500, 3000},
	}
	for _, c := range cases {
		wx, wy := geom.PixelToWorld(c.px, c.py, screen, viewport)
		px, py := geom.WorldToPixel(wx, wy, screen, viewport)
		assert.InDelta(t, c.px, px, 1e-6, "px round trip for %+v", c)
		assert.InDelta(t, c.py, py, 1e-6, "py round trip for %+v", c)
	}
}

func TestSizeValid(t *testing.T) {
	assert.True(t, geom.Size{Width: 1, Height: 1}.Valid())
	assert.False(t, geom.Size{Width: 0, Height: 1}.Valid())
	assert.False(t, geom.Size{Width: 1, Height: 0}.Valid())
	assert.False(t, geom.Size{}.Valid())
}
