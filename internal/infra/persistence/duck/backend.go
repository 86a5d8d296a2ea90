package duck

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"inkboard/internal/domain"
	"inkboard/internal/repository"
)

// backend 是单一存储形态的写入/读取实现。
// Gateway 在初始化时选定其一作为活跃写入形态；读取时两种形态都会用到。
type backend interface {
	insert(ctx context.Context, stroke domain.Stroke, simplifyTolerance float64) error
	undo(ctx context.Context) error
	clear(ctx context.Context) error
	load(ctx context.Context) ([]domain.Stroke, error)
}

// clampTolerance 将简化容差收敛到 [0, min(0.3*width, 3)]。
func clampTolerance(tolerance, width float64) float64 {
	if tolerance <= 0 || math.IsNaN(tolerance) {
		return 0
	}
	upper := math.Min(0.3*width, 3)
	if upper < 0 || math.IsNaN(upper) {
		upper = 0
	}
	return math.Min(tolerance, upper)
}

// ------------------------------------------------------------
// 几何形态：GEOMETRY 列，WKT 编码，spatial 扩展函数
// ------------------------------------------------------------

type geometryBackend struct {
	db *sql.DB
}

const createGeometryTable = `
CREATE TABLE IF NOT EXISTS strokes_geo (
    id         TEXT PRIMARY KEY,
    geom       GEOMETRY,
    color      VARCHAR,
    width      DOUBLE,
    created_at TIMESTAMP DEFAULT now()
)`

func (b *geometryBackend) insert(ctx context.Context, stroke domain.Stroke, simplifyTolerance float64) error {
	wkt := toLineString(stroke.Points)
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO strokes_geo (id, geom, color, width) VALUES (?, ST_GeomFromText(?), ?, ?)`,
		stroke.ID, wkt, stroke.Color, stroke.Width)
	if err != nil {
		return fmt.Errorf("%w: insert geometry stroke: %v", repository.ErrPersistence, err)
	}

	tol := clampTolerance(simplifyTolerance, stroke.Width)
	if tol > 0 {
		_, err = b.db.ExecContext(ctx,
			`UPDATE strokes_geo SET geom = ST_Simplify(geom, ?) WHERE id = ?`,
			tol, stroke.ID)
		if err != nil {
			return fmt.Errorf("%w: simplify stroke %s: %v", repository.ErrPersistence, stroke.ID, err)
		}
	}
	return nil
}

func (b *geometryBackend) undo(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM strokes_geo WHERE id IN (
		    SELECT id FROM strokes_geo ORDER BY created_at DESC LIMIT 1)`)
	if err != nil {
		return fmt.Errorf("%w: undo geometry stroke: %v", repository.ErrPersistence, err)
	}
	return nil
}

func (b *geometryBackend) clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM strokes_geo`)
	if err != nil {
		return fmt.Errorf("%w: clear geometry strokes: %v", repository.ErrPersistence, err)
	}
	return nil
}

func (b *geometryBackend) load(ctx context.Context) ([]domain.Stroke, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, ST_AsText(geom), color, width, created_at
		   FROM strokes_geo ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query geometry strokes: %w", err)
	}
	defer rows.Close()

	var strokes []domain.Stroke
	for rows.Next() {
		var (
			s     domain.Stroke
			wkt   sql.NullString
			color sql.NullString
			width sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &wkt, &color, &width, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan geometry stroke: %w", err)
		}
		if wkt.Valid {
			points, perr := parseLineString(wkt.String)
			if perr != nil {
				// 单行几何损坏只让该行退化为空点列
				points = nil
			}
			s.Points = points
		}
		s.Color = color.String
		s.Width = width.Float64
		s.Normalize()
		strokes = append(strokes, s)
	}
	return strokes, rows.Err()
}

// ------------------------------------------------------------
// JSON 回退形态：坐标存成 [[x, y], ...] 的 JSON 数组
// ------------------------------------------------------------

type jsonBackend struct {
	db *sql.DB
}

const createFallbackTable = `
CREATE TABLE IF NOT EXISTS strokes_json (
    id         TEXT PRIMARY KEY,
    coords     JSON,
    color      VARCHAR,
    width      DOUBLE,
    created_at TIMESTAMP DEFAULT now()
)`

// encodeCoords 将点列编码为 JSON 数组文本。
// 与 WKT 路径一致，非有限坐标的点被丢弃（JSON 无法表示 NaN/Inf）。
func encodeCoords(points []domain.Point) (string, error) {
	pairs := make([][2]float64, 0, len(points))
	for _, p := range points {
		if !p.Finite() {
			continue
		}
		pairs = append(pairs, [2]float64{p.X, p.Y})
	}
	raw, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeCoords 解析 JSON 坐标数组；失败时返回错误，由调用方决定降级。
// 解码进定长数组会把短/长元素静默补零或截断，所以先解成变长切片，
// 再逐对校验元素个数。
func decodeCoords(raw string) ([]domain.Point, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, err
	}
	points := make([]domain.Point, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("coord pair %d has %d elements, want 2", i, len(pair))
		}
		points[i] = domain.Point{X: pair[0], Y: pair[1]}
	}
	return points, nil
}

func (b *jsonBackend) insert(ctx context.Context, stroke domain.Stroke, _ float64) error {
	coords, err := encodeCoords(stroke.Points)
	if err != nil {
		return fmt.Errorf("%w: encode coords: %v", repository.ErrPersistence, err)
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO strokes_json (id, coords, color, width) VALUES (?, ?, ?, ?)`,
		stroke.ID, coords, stroke.Color, stroke.Width)
	if err != nil {
		return fmt.Errorf("%w: insert json stroke: %v", repository.ErrPersistence, err)
	}
	return nil
}

func (b *jsonBackend) undo(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM strokes_json WHERE id IN (
		    SELECT id FROM strokes_json ORDER BY created_at DESC LIMIT 1)`)
	if err != nil {
		return fmt.Errorf("%w: undo json stroke: %v", repository.ErrPersistence, err)
	}
	return nil
}

func (b *jsonBackend) clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM strokes_json`)
	if err != nil {
		return fmt.Errorf("%w: clear json strokes: %v", repository.ErrPersistence, err)
	}
	return nil
}

func (b *jsonBackend) load(ctx context.Context) ([]domain.Stroke, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, CAST(coords AS VARCHAR), color, width, created_at
		   FROM strokes_json ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query json strokes: %w", err)
	}
	defer rows.Close()

	var strokes []domain.Stroke
	for rows.Next() {
		var (
			s      domain.Stroke
			coords sql.NullString
			color  sql.NullString
			width  sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &coords, &color, &width, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan json stroke: %w", err)
		}
		if coords.Valid {
			points, perr := decodeCoords(coords.String)
			if perr != nil {
				// 单行 JSON 损坏不中断整次读取，该行退化为空点列
				points = nil
			}
			s.Points = points
		}
		s.Color = color.String
		s.Width = width.Float64
		s.Normalize()
		strokes = append(strokes, s)
	}
	return strokes, rows.Err()
}
