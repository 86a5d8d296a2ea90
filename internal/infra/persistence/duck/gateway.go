package duck

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"inkboard/internal/domain"
	"inkboard/internal/repository"
)

// Gateway 是 repository.StrokeRepository 的 DuckDB 实现。
//
// Init 在会话开始时一次性探测 spatial 扩展并选定活跃写入形态，
// 之后 capable 不再变化。读取始终覆盖两张表，以兼容在另一形态下
// 写入的历史数据。
type Gateway struct {
	db      *sql.DB
	capable bool

	geo      *geometryBackend
	fallback *jsonBackend
	active   backend

	log *logrus.Entry
}

var _ repository.StrokeRepository = (*Gateway)(nil)

// NewGateway 创建网关。db 为 nil 表示连接尚未建立，
// 此时除 Insert 外的操作都是静默 no-op。
func NewGateway(db *sql.DB) *Gateway {
	g := &Gateway{
		db:  db,
		log: logrus.WithField("component", "duck-gateway"),
	}
	if db != nil {
		g.geo = &geometryBackend{db: db}
		g.fallback = &jsonBackend{db: db}
	}
	return g
}

// Init 探测几何能力并建表。
// spatial 扩展加载失败或几何建表失败都只是回落条件，不是错误；
// JSON 回退表建表失败才是致命的（会话级 schema 无法保证）。
func (g *Gateway) Init(ctx context.Context) (bool, error) {
	if g.db == nil {
		return false, repository.ErrStoreUnavailable
	}

	g.capable = g.enableSpatial(ctx)
	if g.capable {
		if _, err := g.db.ExecContext(ctx, createGeometryTable); err != nil {
			g.log.WithError(err).Warn("Geometry table creation failed, falling back to JSON storage")
			g.capable = false
		}
	}

	if _, err := g.db.ExecContext(ctx, createFallbackTable); err != nil {
		return false, fmt.Errorf("create fallback table: %w", err)
	}

	if g.capable {
		g.active = g.geo
		g.log.Info("Geometry storage enabled")
	} else {
		g.active = g.fallback
		g.log.Info("Using JSON fallback storage")
	}
	return g.capable, nil
}

// enableSpatial 尝试安装并加载 spatial 扩展。
func (g *Gateway) enableSpatial(ctx context.Context) bool {
	if _, err := g.db.ExecContext(ctx, "INSTALL spatial"); err != nil {
		g.log.WithError(err).WithField("cause", repository.ErrCapabilityUnavailable).
			Warn("Failed to install spatial extension")
		return false
	}
	if _, err := g.db.ExecContext(ctx, "LOAD spatial"); err != nil {
		g.log.WithError(err).WithField("cause", repository.ErrCapabilityUnavailable).
			Warn("Failed to load spatial extension")
		return false
	}
	return true
}

// GeometryCapable 报告 Init 选定的存储形态。
func (g *Gateway) GeometryCapable() bool {
	return g.capable
}

// Insert 写入一条笔画，只写活跃形态的表。
// 过滤掉非有限点后不足两点的笔画不写入（no-op）。
func (g *Gateway) Insert(ctx context.Context, stroke domain.Stroke, simplifyTolerance float64) error {
	if g.db == nil || g.active == nil {
		return repository.ErrStoreUnavailable
	}
	if finitePointCount(stroke.Points) < 2 {
		g.log.WithField("stroke", stroke.ID).Debug("Skipping stroke with fewer than two finite points")
		return nil
	}
	return g.active.insert(ctx, stroke, simplifyTolerance)
}

// Undo 删除活跃形态表中 created_at 最大的一行；空表是 no-op。
func (g *Gateway) Undo(ctx context.Context) error {
	if g.db == nil || g.active == nil {
		return nil
	}
	return g.active.undo(ctx)
}

// Clear 清空 JSON 回退表；几何能力可用时同时清空几何表。
func (g *Gateway) Clear(ctx context.Context) error {
	if g.db == nil {
		return nil
	}
	if g.capable {
		if err := g.geo.clear(ctx); err != nil {
			return err
		}
	}
	return g.fallback.clear(ctx)
}

// Reload 返回两个分区的拼接：几何行（仅当能力可用）在前，
// JSON 行在后，各自按 created_at 升序，互不交错。
func (g *Gateway) Reload(ctx context.Context) ([]domain.Stroke, error) {
	if g.db == nil {
		return nil, nil
	}

	var strokes []domain.Stroke
	if g.capable {
		geoRows, err := g.geo.load(ctx)
		if err != nil {
			return nil, err
		}
		strokes = append(strokes, geoRows...)
	}

	jsonRows, err := g.fallback.load(ctx)
	if err != nil {
		return nil, err
	}
	return append(strokes, jsonRows...), nil
}

// Checkpoint 将 WAL 刷到磁盘。
func (g *Gateway) Checkpoint(ctx context.Context) error {
	if g.db == nil {
		return nil
	}
	if _, err := g.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint store: %w", err)
	}
	return nil
}

// Close 关闭底层连接。
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}
