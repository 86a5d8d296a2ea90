package service

import "errors"

var (
	// ErrSessionNotReady 表示启动序列尚未完成（或启动失败），
	// 依赖存储的用户动作暂不可用。
	ErrSessionNotReady = errors.New("session not ready")

	// ErrSessionClosed 表示会话在启动完成前被 Close，
	// 启动结果已被丢弃。
	ErrSessionClosed = errors.New("session closed")

	// ErrDecodeFailed 表示点云文件解码失败（格式损坏或不支持的编码）。
	ErrDecodeFailed = errors.New("point cloud decode failed")

	// ErrInternalServer 表示未分类的内部错误。
	ErrInternalServer = errors.New("internal server error")
)
