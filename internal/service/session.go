package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inkboard/internal/domain"
	"inkboard/internal/geom"
	"inkboard/internal/render"
	"inkboard/internal/repository"
)

// SessionService 负责一次绘图会话的编排：
// 启动时初始化存储网关并加载初始状态，之后把用户动作
// （完成笔画、撤销、清空、刷新、导入点云）转发给网关，并维护
// 对渲染层暴露的内存状态。
//
// 暴露的笔画列表永远是最近一次成功 Reload 的镜像，从不做本地增量
// 修补；并发触发的操作以最后完成的 Reload 为准。
type SessionService struct {
	repo     repository.StrokeRepository
	renderer render.Renderer // 可为 nil（纯 API 模式）
	log      *logrus.Entry

	mu       sync.RWMutex
	strokes  []domain.Stroke
	clouds   []domain.PointCloud
	ready    bool
	closed   bool
	capable  bool
	screen   geom.Size
	viewport geom.Size
}

// NewSessionService 创建会话服务。
// screen/viewport 是渲染换算用的初始尺寸，客户端连接后可更新。
func NewSessionService(repo repository.StrokeRepository, screen, viewport geom.Size) *SessionService {
	if repo == nil {
		panic("stroke repository cannot be nil for SessionService")
	}
	return &SessionService{
		repo:     repo,
		log:      logrus.WithField("component", "session"),
		screen:   screen,
		viewport: viewport,
	}
}

// SetRenderer 注入渲染者。Hub 与 Session 相互引用，所以渲染者在
// 构造之后单独注入一次。
func (s *SessionService) SetRenderer(r render.Renderer) {
	s.mu.Lock()
	s.renderer = r
	s.mu.Unlock()
}

// Start 执行启动序列：初始化网关（探测几何能力、建表）、做一次
// 初始 Reload，然后进入 ready 状态。
// ctx 取消或服务被 Close 后，后续的异步完成会被丢弃，不再改写状态。
// 连接/建表失败会返回错误，会话永远不会变为 ready。
func (s *SessionService) Start(ctx context.Context) error {
	capable, err := s.repo.Init(ctx)
	if err != nil {
		s.log.WithError(err).Error("Store initialization failed, session stays in loading state")
		return fmt.Errorf("init store: %w", err)
	}
	if s.discarded(ctx) {
		s.log.Info("Startup cancelled after store init, discarding result")
		return s.discardErr(ctx)
	}

	s.mu.Lock()
	s.capable = capable
	s.mu.Unlock()

	strokes, err := s.repo.Reload(ctx)
	if err != nil {
		s.log.WithError(err).Error("Initial reload failed, session stays in loading state")
		return fmt.Errorf("initial reload: %w", err)
	}
	if s.discarded(ctx) {
		s.log.Info("Startup cancelled after initial reload, discarding result")
		return s.discardErr(ctx)
	}

	s.mu.Lock()
	s.strokes = strokes
	s.ready = true
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"geometry_capable": capable,
		"strokes":          len(strokes),
	}).Info("Session ready")
	s.notifyRenderer()
	return nil
}

// Close 标记会话已结束。进行中的启动步骤完成后其结果会被丢弃。
func (s *SessionService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// discarded 报告启动结果是否应被丢弃（协作式取消检查点）。
func (s *SessionService) discarded(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// discardErr 返回启动被丢弃的原因：ctx 取消优先，
// 否则就是服务被 Close。
func (s *SessionService) discardErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSessionClosed
}

// Ready 报告会话是否完成了启动序列。
func (s *SessionService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// GeometryCapable 报告启动时选定的存储形态。
func (s *SessionService) GeometryCapable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capable
}

// Strokes 返回当前可见笔画列表的副本。
func (s *SessionService) Strokes() []domain.Stroke {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Stroke, len(s.strokes))
	copy(out, s.strokes)
	return out
}

// SetView 更新渲染换算用的屏幕/视口尺寸，并重新通知渲染层。
// 非法尺寸（含零维度）被忽略。
func (s *SessionService) SetView(screen, viewport geom.Size) {
	if !screen.Valid() || !viewport.Valid() {
		return
	}
	s.mu.Lock()
	s.screen = screen
	s.viewport = viewport
	s.mu.Unlock()
	s.notifyRenderer()
}

// simplifyTolerance 由笔画宽度推导简化容差，上限 3。
func simplifyTolerance(width float64) float64 {
	return math.Min(0.3*width, 3)
}

// FinishStroke 持久化一条采集完成的笔画并刷新可见列表。
// 少于两个点的笔画直接丢弃（no-op）。simplify 开启时按宽度推导
// 简化容差传给网关；几何能力不可用时网关会忽略它。
func (s *SessionService) FinishStroke(ctx context.Context, points []domain.Point, color string, width float64, simplify bool) error {
	if !s.Ready() {
		return ErrSessionNotReady
	}
	stroke := domain.Stroke{
		ID:     uuid.NewString(),
		Color:  color,
		Width:  width,
		Points: points,
	}
	stroke.Normalize()
	if !stroke.Persistable() {
		s.log.WithField("points", len(points)).Debug("Dropping stroke below minimum length")
		return nil
	}

	tolerance := 0.0
	if simplify {
		tolerance = simplifyTolerance(stroke.Width)
	}

	if err := s.repo.Insert(ctx, stroke, tolerance); err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			s.log.Warn("Insert skipped, store connection not available")
			return nil
		}
		return fmt.Errorf("persist stroke: %w", err)
	}
	return s.refresh(ctx)
}

// Undo 删除最近创建的一条笔画并刷新。
func (s *SessionService) Undo(ctx context.Context) error {
	if !s.Ready() {
		return ErrSessionNotReady
	}
	if err := s.repo.Undo(ctx); err != nil {
		return fmt.Errorf("undo stroke: %w", err)
	}
	return s.refresh(ctx)
}

// ClearStrokes 删除两种存储形态下的全部笔画并刷新。
func (s *SessionService) ClearStrokes(ctx context.Context) error {
	if !s.Ready() {
		return ErrSessionNotReady
	}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear strokes: %w", err)
	}
	return s.refresh(ctx)
}

// Refresh 从存储重读可见列表（用户触发的显式刷新）。
func (s *SessionService) Refresh(ctx context.Context) error {
	if !s.Ready() {
		return ErrSessionNotReady
	}
	return s.refresh(ctx)
}

// refresh 执行一次 Reload 并在成功时整体替换可见列表。
// 失败时保留上一次成功的列表不动。
func (s *SessionService) refresh(ctx context.Context) error {
	strokes, err := s.repo.Reload(ctx)
	if err != nil {
		s.log.WithError(err).Error("Reload failed, keeping previous stroke list")
		return fmt.Errorf("reload strokes: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.strokes = strokes
	s.mu.Unlock()

	s.notifyRenderer()
	return nil
}

// Scene 构建当前世界坐标场景（笔画像素点 → 世界坐标折线）。
func (s *SessionService) Scene() render.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scene := render.Scene{
		Ready:           s.ready,
		GeometryCapable: s.capable,
		Strokes:         make([]render.Polyline, 0, len(s.strokes)),
		Clouds:          make([]domain.PointCloud, len(s.clouds)),
	}
	copy(scene.Clouds, s.clouds)

	for _, stroke := range s.strokes {
		line := render.Polyline{
			ID:     stroke.ID,
			Color:  stroke.Color,
			Width:  stroke.Width,
			Points: make([]render.Point, len(stroke.Points)),
		}
		for i, p := range stroke.Points {
			wx, wy := geom.PixelToWorld(p.X, p.Y, s.screen, s.viewport)
			line.Points[i] = render.Point{X: wx, Y: wy}
		}
		scene.Strokes = append(scene.Strokes, line)
	}
	return scene
}

// notifyRenderer 把最新场景推给渲染者（若已注入）。
func (s *SessionService) notifyRenderer() {
	s.mu.RLock()
	r := s.renderer
	s.mu.RUnlock()
	if r == nil {
		return
	}
	r.RenderScene(s.Scene())
}
