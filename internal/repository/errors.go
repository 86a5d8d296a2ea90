package repository

import "errors"

// 仓库层的通用错误。
var (
	// ErrStoreUnavailable 表示存储连接尚未建立或已关闭。
	ErrStoreUnavailable = errors.New("repository: store connection not available")

	// ErrPersistence 表示插入/更新/删除语句被存储引擎拒绝。
	ErrPersistence = errors.New("repository: statement rejected by store")

	// ErrCapabilityUnavailable 表示几何扩展加载失败。
	// 该错误只在仓库内部用于日志标注，Init 会自动回落，不向外传播。
	ErrCapabilityUnavailable = errors.New("repository: geometry capability unavailable")
)
