package domain

// CloudPoint 表示点云中的一个三维点。
// 颜色与强度是可选字段，由对应的 Has* 标志指示是否存在。
type CloudPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	R uint8 `json:"r,omitempty"`
	G uint8 `json:"g,omitempty"`
	B uint8 `json:"b,omitempty"`

	Intensity float64 `json:"intensity,omitempty"`

	HasColor     bool `json:"has_color,omitempty"`
	HasIntensity bool `json:"has_intensity,omitempty"`
}

// PointCloud 表示一个仅用于展示的导入点云。
// 只存在于会话内存中，从不写入存储。
type PointCloud struct {
	Name   string       `json:"name"`
	Points []CloudPoint `json:"points"`
}
