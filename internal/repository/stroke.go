package repository

import (
	"context"

	"inkboard/internal/domain"
)

// StrokeRepository 定义笔画持久化网关的统一操作集。
// 底层可能有两种存储形态（几何原生 / JSON 回退），对调用方完全透明：
// 会话启动时由 Init 一次性选定活跃形态，之后不再改变。
type StrokeRepository interface {
	// Init 尝试启用几何存储能力并建表。
	// 能力启用失败是可恢复状态：记录日志、回落到 JSON 形态并返回
	// capable=false，不返回错误。JSON 回退表无条件创建。
	// 多次调用是安全的（建表使用 IF NOT EXISTS）。
	Init(ctx context.Context) (geometryCapable bool, err error)

	// Insert 写入一条新笔画，只写当前活跃形态对应的表。
	// simplifyTolerance > 0 时，几何形态会在插入后对该行做一次
	// 几何简化；JSON 形态忽略该参数。
	// 连接未建立时返回 ErrStoreUnavailable；存储引擎拒绝语句时
	// 返回包装后的 ErrPersistence。
	Insert(ctx context.Context, stroke domain.Stroke, simplifyTolerance float64) error

	// Undo 从活跃形态的表中删除 created_at 最大的一行。
	// 表为空或连接未建立时是静默 no-op。
	// 注意：只作用于本会话的活跃形态；另一形态下历史会话留下的行
	// 不参与撤销。
	Undo(ctx context.Context) error

	// Clear 清空 JSON 回退表，几何能力可用时同时清空几何表。
	// 连接未建立时是静默 no-op。
	Clear(ctx context.Context) error

	// Reload 读取两张表并返回拼接结果：几何表（仅当能力可用）按
	// created_at 升序在前，JSON 表按 created_at 升序在后，两个分区
	// 不交错。单行的坐标解析失败只会使该行退化为空点列，不会中断
	// 整次读取。连接未建立时返回空列表。
	Reload(ctx context.Context) ([]domain.Stroke, error)

	// GeometryCapable 报告 Init 选定的存储形态。
	GeometryCapable() bool

	// Checkpoint 将存储引擎的未落盘数据刷到磁盘。
	Checkpoint(ctx context.Context) error

	// Close 释放底层连接。
	Close() error
}
