// Package pointcloud 解析 ASCII 编码的 PCD 点云文件。
//
// 只支持 DATA ascii；binary / binary_compressed 编码直接拒绝，
// 不做猜测。解析失败只影响当前文件，不影响已加载的点云。
package pointcloud

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"inkboard/internal/domain"
)

// 解码失败的错误分类。
var (
	// ErrMalformedHeader 表示 PCD 头部缺失或字段非法。
	ErrMalformedHeader = errors.New("pointcloud: malformed PCD header")

	// ErrUnsupportedEncoding 表示 DATA 段不是 ascii 编码。
	ErrUnsupportedEncoding = errors.New("pointcloud: unsupported data encoding")
)

// header 汇总解码需要的 PCD 头部信息。
type header struct {
	fields []string
	types  []string
	counts []int
	points int
	data   string
}

// fieldIndex 返回字段在数据行 token 中的起始下标，不存在时返回 -1。
// COUNT > 1 的字段占多个 token，这里只取第一个分量。
func (h *header) fieldIndex(name string) int {
	offset := 0
	for i, f := range h.fields {
		if f == name {
			return offset
		}
		offset += h.counts[i]
	}
	return -1
}

// fieldType 返回字段的 TYPE 标记（"F"/"U"/"I"），未知时返回空串。
func (h *header) fieldType(name string) string {
	for i, f := range h.fields {
		if f == name && i < len(h.types) {
			return h.types[i]
		}
	}
	return ""
}

// tokensPerRow 返回一行数据应有的 token 数。
func (h *header) tokensPerRow() int {
	total := 0
	for _, c := range h.counts {
		total += c
	}
	return total
}

// Decode 将 PCD 文件内容解析为点云。
// 点的 x/y/z 为必需字段；rgb 与 intensity 是可选的。
func Decode(data []byte) (*domain.PointCloud, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	hdr, err := parseHeader(scanner)
	if err != nil {
		return nil, err
	}

	switch hdr.data {
	case "ascii":
		// 唯一支持的编码
	case "binary", "binary_compressed":
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, hdr.data)
	default:
		return nil, fmt.Errorf("%w: unknown DATA encoding %q", ErrMalformedHeader, hdr.data)
	}

	xi := hdr.fieldIndex("x")
	yi := hdr.fieldIndex("y")
	zi := hdr.fieldIndex("z")
	if xi < 0 || yi < 0 || zi < 0 {
		return nil, fmt.Errorf("%w: missing x/y/z fields (FIELDS %v)", ErrMalformedHeader, hdr.fields)
	}
	rgbi := hdr.fieldIndex("rgb")
	inti := hdr.fieldIndex("intensity")

	capacity := hdr.points
	if capacity <= 0 {
		capacity = 0
	}
	points := make([]domain.CloudPoint, 0, capacity)

	perRow := hdr.tokensPerRow()
	row := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		row++
		tokens := strings.Fields(line)
		if len(tokens) < perRow {
			return nil, fmt.Errorf("%w: data row %d has %d tokens, want %d",
				ErrMalformedHeader, row, len(tokens), perRow)
		}

		p, err := parsePoint(tokens, hdr, xi, yi, zi, rgbi, inti)
		if err != nil {
			return nil, fmt.Errorf("data row %d: %w", row, err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read point data: %w", err)
	}

	if hdr.points > 0 && len(points) != hdr.points {
		return nil, fmt.Errorf("%w: POINTS declares %d, file contains %d",
			ErrMalformedHeader, hdr.points, len(points))
	}
	return &domain.PointCloud{Points: points}, nil
}

// parseHeader 逐行读取头部直到 DATA 行。
func parseHeader(scanner *bufio.Scanner) (*header, error) {
	hdr := &header{points: -1}
	sawFields := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		key := strings.ToUpper(tokens[0])
		args := tokens[1:]

		switch key {
		case "VERSION", "SIZE", "WIDTH", "HEIGHT", "VIEWPOINT":
			// 解码不依赖这些字段，跳过
		case "FIELDS":
			hdr.fields = make([]string, len(args))
			for i, a := range args {
				hdr.fields[i] = strings.ToLower(a)
			}
			sawFields = true
		case "TYPE":
			hdr.types = make([]string, len(args))
			for i, a := range args {
				hdr.types[i] = strings.ToUpper(a)
			}
		case "COUNT":
			hdr.counts = make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil || n <= 0 {
					return nil, fmt.Errorf("%w: bad COUNT value %q", ErrMalformedHeader, a)
				}
				hdr.counts[i] = n
			}
		case "POINTS":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: POINTS wants one value", ErrMalformedHeader)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad POINTS value %q", ErrMalformedHeader, args[0])
			}
			hdr.points = n
		case "DATA":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: DATA wants one value", ErrMalformedHeader)
			}
			hdr.data = strings.ToLower(args[0])
			if !sawFields {
				return nil, fmt.Errorf("%w: DATA before FIELDS", ErrMalformedHeader)
			}
			// COUNT 缺省时每个字段占一个 token
			if len(hdr.counts) == 0 {
				hdr.counts = make([]int, len(hdr.fields))
				for i := range hdr.counts {
					hdr.counts[i] = 1
				}
			}
			if len(hdr.counts) != len(hdr.fields) {
				return nil, fmt.Errorf("%w: COUNT/FIELDS length mismatch", ErrMalformedHeader)
			}
			return hdr, nil
		default:
			return nil, fmt.Errorf("%w: unknown header entry %q", ErrMalformedHeader, tokens[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return nil, fmt.Errorf("%w: missing DATA line", ErrMalformedHeader)
}

// parsePoint 从一行 token 中取出一个点。
func parsePoint(tokens []string, hdr *header, xi, yi, zi, rgbi, inti int) (domain.CloudPoint, error) {
	var p domain.CloudPoint
	var err error

	if p.X, err = strconv.ParseFloat(tokens[xi], 64); err != nil {
		return p, fmt.Errorf("parse x %q: %w", tokens[xi], err)
	}
	if p.Y, err = strconv.ParseFloat(tokens[yi], 64); err != nil {
		return p, fmt.Errorf("parse y %q: %w", tokens[yi], err)
	}
	if p.Z, err = strconv.ParseFloat(tokens[zi], 64); err != nil {
		return p, fmt.Errorf("parse z %q: %w", tokens[zi], err)
	}

	if rgbi >= 0 {
		packed, err := parsePackedRGB(tokens[rgbi], hdr.fieldType("rgb"))
		if err != nil {
			return p, err
		}
		p.R = uint8(packed >> 16)
		p.G = uint8(packed >> 8)
		p.B = uint8(packed)
		p.HasColor = true
	}
	if inti >= 0 {
		if p.Intensity, err = strconv.ParseFloat(tokens[inti], 64); err != nil {
			return p, fmt.Errorf("parse intensity %q: %w", tokens[inti], err)
		}
		p.HasIntensity = true
	}
	return p, nil
}

// parsePackedRGB 解出打包的 0xRRGGBB 值。
// TYPE F 时数值是把整数位模式塞进 float32 的惯用存法，需要按位还原。
func parsePackedRGB(token, typ string) (uint32, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rgb %q: %w", token, err)
	}
	if typ == "F" || typ == "" {
		return math.Float32bits(float32(v)), nil
	}
	return uint32(v), nil
}
