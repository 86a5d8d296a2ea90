// Package duck 用 DuckDB 实现笔画持久化网关。
//
// 几何能力依赖 spatial 扩展：加载成功时笔画以原生 GEOMETRY
// （LINESTRING）存储，失败时回落到 JSON 坐标表。两种形态语义一致，
// 对上层通过 repository.StrokeRepository 接口屏蔽。
package duck

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2" // 注册 "duckdb" 驱动
)

// OpenStore 打开嵌入式存储。path 为空时使用内存数据库。
// 连接失败对会话是致命的，由调用方决定如何处置。
func OpenStore(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %q: %w", path, err)
	}
	// 嵌入式单会话使用，单连接即可，同时避免内存库在多连接下
	// 各自为政的问题。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb at %q: %w", path, err)
	}
	return db, nil
}
