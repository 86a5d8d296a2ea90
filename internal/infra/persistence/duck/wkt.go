package duck

import (
	"fmt"
	"strconv"
	"strings"

	"inkboard/internal/domain"
)

// toLineString 将点列编码为 WKT LINESTRING 字面量。
// 非有限坐标的点被静默丢弃，剩余点保持原有顺序。
func toLineString(points []domain.Point) string {
	var b strings.Builder
	b.WriteString("LINESTRING(")
	first := true
	for _, p := range points {
		if !p.Finite() {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
		first = false
	}
	b.WriteByte(')')
	return b.String()
}

// finitePointCount 统计有限坐标的点数。两种写入路径都会丢弃
// 非有限点，过滤后不足两点的几何构不成合法 LINESTRING。
func finitePointCount(points []domain.Point) int {
	n := 0
	for _, p := range points {
		if p.Finite() {
			n++
		}
	}
	return n
}

// parseLineString 解析 ST_AsText 输出的 LINESTRING 字面量。
// 空几何（"LINESTRING EMPTY"）返回空点列。
func parseLineString(wkt string) ([]domain.Point, error) {
	s := strings.TrimSpace(wkt)
	if s == "" {
		return nil, nil
	}
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "LINESTRING") {
		return nil, fmt.Errorf("not a linestring: %q", wkt)
	}
	rest := strings.TrimSpace(s[len("LINESTRING"):])
	if strings.EqualFold(rest, "EMPTY") {
		return nil, nil
	}
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return nil, fmt.Errorf("malformed linestring: %q", wkt)
	}
	inner := strings.TrimSpace(rest[1 : len(rest)-1])
	if inner == "" {
		return nil, nil
	}

	pairs := strings.Split(inner, ",")
	points := make([]domain.Point, 0, len(pairs))
	for _, pair := range pairs {
		fields := strings.Fields(pair)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed coordinate pair %q in %q", pair, wkt)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse x in %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse y in %q: %w", pair, err)
		}
		points = append(points, domain.Point{X: x, Y: y})
	}
	return points, nil
}
