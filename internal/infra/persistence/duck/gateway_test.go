package duck

import (
	"context"
	"math"
	"testing"
	"time"

	"inkboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestGateway 在内存库上建好网关。
// spatial 扩展在离线环境下可能装不上——Init 对此会自动回落，
// 下面的用例除特别标注外对两种形态都成立。
func openTestGateway(t *testing.T) (*Gateway, context.Context) {
	t.Helper()
	ctx := context.Background()

	db, err := OpenStore(ctx, "")
	require.NoError(t, err)

	g := NewGateway(db)
	_, err = g.Init(ctx)
	require.NoError(t, err)

	t.Cleanup(func() { _ = g.Close() })
	return g, ctx
}

func testStroke(id string, points ...domain.Point) domain.Stroke {
	return domain.Stroke{ID: id, Color: "#ffffff", Width: 3, Points: points}
}

func TestGateway_InitIsIdempotent(t *testing.T) {
	g, ctx := openTestGateway(t)

	// 重复初始化不应报错（建表用 IF NOT EXISTS）
	_, err := g.Init(ctx)
	require.NoError(t, err)
}

func TestGateway_InsertAndReload(t *testing.T) {
	g, ctx := openTestGateway(t)

	s := testStroke("s1", domain.Point{X: 0, Y: 0}, domain.Point{X: 10, Y: 10})
	require.NoError(t, g.Insert(ctx, s, 0))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	require.Len(t, strokes, 1)
	assert.Equal(t, "s1", strokes[0].ID)
	assert.Equal(t, "#ffffff", strokes[0].Color)
	assert.InDelta(t, 3.0, strokes[0].Width, 1e-9)
	assert.Equal(t, s.Points, strokes[0].Points)
	assert.False(t, strokes[0].CreatedAt.IsZero(), "created_at 应由存储引擎填充")
}

// 撤销只删除 created_at 最大的一条。
func TestGateway_UndoRemovesMostRecent(t *testing.T) {
	g, ctx := openTestGateway(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.Insert(ctx, testStroke(id,
			domain.Point{X: 0, Y: 0}, domain.Point{X: 1, Y: 1}), 0))
		time.Sleep(5 * time.Millisecond) // 保证时间戳可区分
	}

	require.NoError(t, g.Undo(ctx))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	require.Len(t, strokes, 2)
	assert.Equal(t, "a", strokes[0].ID)
	assert.Equal(t, "b", strokes[1].ID)
}

func TestGateway_UndoOnEmptyTableIsNoop(t *testing.T) {
	g, ctx := openTestGateway(t)

	require.NoError(t, g.Undo(ctx))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, strokes)
}

// 清空要同时覆盖两张表：即使活跃形态是几何表，
// 另一形态下留下的历史行也要一并删除。
func TestGateway_ClearEmptiesBothSchemas(t *testing.T) {
	g, ctx := openTestGateway(t)

	// 活跃形态写一条
	require.NoError(t, g.Insert(ctx, testStroke("active",
		domain.Point{X: 0, Y: 0}, domain.Point{X: 1, Y: 1}), 0))
	// 直接往回退表塞一条，模拟另一形态的历史数据
	require.NoError(t, g.fallback.insert(ctx, testStroke("legacy",
		domain.Point{X: 2, Y: 2}, domain.Point{X: 3, Y: 3}), 0))

	require.NoError(t, g.Clear(ctx))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, strokes)
}

// 回退形态的往返：写入什么读回什么。
func TestGateway_FallbackJSONRoundTrip(t *testing.T) {
	g, ctx := openTestGateway(t)

	s := domain.Stroke{
		ID:     "rt",
		Color:  "#222222",
		Width:  4,
		Points: []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
	}
	require.NoError(t, g.fallback.insert(ctx, s, 0))

	loaded, err := g.fallback.load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, s.Points, loaded[0].Points)
	assert.Equal(t, "#222222", loaded[0].Color)
	assert.InDelta(t, 4.0, loaded[0].Width, 1e-9)
}

// 单行坐标损坏只让该行退化为空点列，整次读取照常完成。
func TestGateway_ReloadDegradesCorruptJSONRow(t *testing.T) {
	g, ctx := openTestGateway(t)

	require.NoError(t, g.fallback.insert(ctx, testStroke("good",
		domain.Point{X: 1, Y: 1}, domain.Point{X: 2, Y: 2}), 0))
	time.Sleep(5 * time.Millisecond)
	// 合法 JSON 但不是坐标数组
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO strokes_json (id, coords, color, width) VALUES ('bad', '{"x": 1}', '#fff', 2)`)
	require.NoError(t, err)

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	require.Len(t, strokes, 2)

	byID := map[string][]domain.Point{}
	for _, s := range strokes {
		byID[s.ID] = s.Points
	}
	assert.Len(t, byID["good"], 2)
	assert.Empty(t, byID["bad"])
}

// 读取时补默认值：NULL 颜色与宽度回落到缺省。
func TestGateway_ReloadAppliesDefaults(t *testing.T) {
	g, ctx := openTestGateway(t)

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO strokes_json (id, coords) VALUES ('bare', '[[0,0],[1,1]]')`)
	require.NoError(t, err)

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	require.Len(t, strokes, 1)
	assert.Equal(t, domain.DefaultColor, strokes[0].Color)
	assert.InDelta(t, domain.DefaultWidth, strokes[0].Width, 1e-9)
}

// 几何形态专属：简化后的笔画端点不变、点数不增。
func TestGateway_GeometrySimplify(t *testing.T) {
	g, ctx := openTestGateway(t)
	if !g.GeometryCapable() {
		t.Skip("spatial extension unavailable in this environment")
	}

	// 一条带大量共线中间点的折线，容差内可大幅化简
	points := make([]domain.Point, 0, 21)
	for i := 0; i <= 20; i++ {
		points = append(points, domain.Point{X: float64(i), Y: 0})
	}
	require.NoError(t, g.Insert(ctx, domain.Stroke{
		ID: "simplify", Color: "#fff", Width: 10, Points: points,
	}, 2.0))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	require.Len(t, strokes, 1)

	got := strokes[0].Points
	require.GreaterOrEqual(t, len(got), 2)
	assert.LessOrEqual(t, len(got), len(points))
	assert.Equal(t, domain.Point{X: 0, Y: 0}, got[0])
	assert.Equal(t, domain.Point{X: 20, Y: 0}, got[len(got)-1])
}

// 过滤非有限点后剩不到两点的笔画构不成合法 LINESTRING，
// 写入前整条跳过，而不是把残缺几何交给存储引擎报错。
func TestGateway_InsertSkipsStrokesWithoutTwoFinitePoints(t *testing.T) {
	g, ctx := openTestGateway(t)

	require.NoError(t, g.Insert(ctx, testStroke("nan-tail",
		domain.Point{X: 0, Y: 0}, domain.Point{X: math.NaN(), Y: 1}), 0))
	require.NoError(t, g.Insert(ctx, testStroke("all-inf",
		domain.Point{X: math.Inf(1), Y: 0}, domain.Point{X: math.Inf(-1), Y: 0}), 0))

	strokes, err := g.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, strokes)
}

func TestGateway_NilConnectionSemantics(t *testing.T) {
	g := NewGateway(nil)
	ctx := context.Background()

	// 连接未建立：写入报 ErrStoreUnavailable，其余静默 no-op
	err := g.Insert(ctx, testStroke("x",
		domain.Point{X: 0, Y: 0}, domain.Point{X: 1, Y: 1}), 0)
	assert.Error(t, err)

	assert.NoError(t, g.Undo(ctx))
	assert.NoError(t, g.Clear(ctx))
	assert.NoError(t, g.Checkpoint(ctx))

	strokes, err := g.Reload(ctx)
	assert.NoError(t, err)
	assert.Empty(t, strokes)
}

func TestGateway_Checkpoint(t *testing.T) {
	g, ctx := openTestGateway(t)
	assert.NoError(t, g.Checkpoint(ctx))
}
