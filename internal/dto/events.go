package dto

import (
	"inkboard/internal/geom"
	"inkboard/internal/render"
)

// ClientEvent 表示从客户端 WebSocket 消息中接收的一个事件。
//
// hello          —— 上报屏幕/视口尺寸（连接建立与窗口缩放时）
// pointer_down   —— 指针按下，携带像素坐标与当前画笔设置
// pointer_move   —— 指针移动，携带像素坐标
// pointer_up     —— 指针抬起，结束当前笔画
// set_mode       —— 切换交互模式（draw / pan）
type ClientEvent struct {
	Type string `json:"type" binding:"required,oneof=hello pointer_down pointer_move pointer_up set_mode"`

	// 像素坐标（pointer_* 事件）
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// 尺寸（hello 事件）
	Screen   *geom.Size `json:"screen,omitempty"`
	Viewport *geom.Size `json:"viewport,omitempty"`

	// 画笔设置（pointer_down 事件）
	Color    string  `json:"color,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Simplify *bool   `json:"simplify,omitempty"`

	// 交互模式（set_mode 事件）
	Mode string `json:"mode,omitempty"`
}

// SceneMessage 是推送给客户端的完整场景帧。
type SceneMessage struct {
	Type string `json:"type"` // 恒为 "scene"
	render.Scene
}

// NewSceneMessage 包装一帧场景。
func NewSceneMessage(scene render.Scene) SceneMessage {
	return SceneMessage{Type: "scene", Scene: scene}
}

// ErrorMessage 是推送给客户端的错误通知。
type ErrorMessage struct {
	Type    string `json:"type"` // 恒为 "error"
	Message string `json:"message"`
}
