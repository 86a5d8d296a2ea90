package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkboard/internal/domain"
	"inkboard/internal/geom"
	"inkboard/internal/render"
	"inkboard/internal/repository"
	"inkboard/internal/repository/mocks"
	"inkboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testScreen   = geom.Size{Width: 800, Height: 600}
	testViewport = geom.Size{Width: 8, Height: 6}
)

// sceneRecorder 记录渲染调用，充当 Renderer。
type sceneRecorder struct {
	scenes []render.Scene
}

func (r *sceneRecorder) RenderScene(scene render.Scene) {
	r.scenes = append(r.scenes, scene)
}

func (r *sceneRecorder) last() render.Scene {
	return r.scenes[len(r.scenes)-1]
}

// startedService 返回一个已完成启动序列的会话服务。
func startedService(t *testing.T, repo *mocks.StrokeRepository, initial []domain.Stroke) *service.SessionService {
	t.Helper()
	repo.On("Init", mock.Anything).Return(true, nil).Once()
	repo.On("Reload", mock.Anything).Return(initial, nil).Once()

	svc := service.NewSessionService(repo, testScreen, testViewport)
	require.NoError(t, svc.Start(context.Background()))
	require.True(t, svc.Ready())
	return svc
}

func TestStart_Success(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	initial := []domain.Stroke{
		{ID: "a", Color: "#ff0000", Width: 3, Points: []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}},
	}
	repo.On("Init", mock.Anything).Return(true, nil).Once()
	repo.On("Reload", mock.Anything).Return(initial, nil).Once()

	svc := service.NewSessionService(repo, testScreen, testViewport)

	// Act
	err := svc.Start(context.Background())

	// Assert
	require.NoError(t, err)
	assert.True(t, svc.Ready())
	assert.True(t, svc.GeometryCapable())
	assert.Equal(t, initial, svc.Strokes())
	repo.AssertExpectations(t)
}

func TestStart_InitFailureKeepsLoadingState(t *testing.T) {
	// Arrange: 连接/建表失败对会话是致命的，永远不会 ready
	repo := new(mocks.StrokeRepository)
	repo.On("Init", mock.Anything).Return(false, errors.New("connection refused")).Once()

	svc := service.NewSessionService(repo, testScreen, testViewport)

	// Act
	err := svc.Start(context.Background())

	// Assert
	require.Error(t, err)
	assert.False(t, svc.Ready())
	repo.AssertNotCalled(t, "Reload", mock.Anything)
}

// 启动序列的协作式取消：Init 完成后发现已取消，后续完成被丢弃，
// 状态不再被改写。
func TestStart_CancelledAfterInit(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	ctx, cancel := context.WithCancel(context.Background())
	repo.On("Init", mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(true, nil).Once()

	svc := service.NewSessionService(repo, testScreen, testViewport)

	// Act
	err := svc.Start(ctx)

	// Assert
	require.Error(t, err)
	assert.False(t, svc.Ready())
	repo.AssertNotCalled(t, "Reload", mock.Anything)
}

func TestStart_CloseDiscardsCompletions(t *testing.T) {
	// Arrange: Close 发生在 Init 进行中，结果同样被丢弃
	repo := new(mocks.StrokeRepository)
	svc := service.NewSessionService(repo, testScreen, testViewport)
	repo.On("Init", mock.Anything).
		Run(func(args mock.Arguments) { svc.Close() }).
		Return(true, nil).Once()

	// Act
	err := svc.Start(context.Background())

	// Assert: ctx 未取消时，丢弃原因是会话已关闭
	require.ErrorIs(t, err, service.ErrSessionClosed)
	assert.False(t, svc.Ready())
	repo.AssertNotCalled(t, "Reload", mock.Anything)
}

func TestFinishStroke_RejectsBelowMinimumLength(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)

	// Act: 0 个点和 1 个点都不触发持久化
	err := svc.FinishStroke(context.Background(), nil, "#fff", 3, false)
	require.NoError(t, err)
	err = svc.FinishStroke(context.Background(), []domain.Point{{X: 1, Y: 1}}, "#fff", 3, false)
	require.NoError(t, err)

	// Assert
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinishStroke_PersistsAndReloads(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)

	points := []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	inserted := []domain.Stroke{
		{ID: "new", Color: "#222222", Width: 4, Points: points, CreatedAt: time.Now()},
	}

	var captured domain.Stroke
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(s domain.Stroke) bool {
		captured = s
		return len(s.Points) == 2
	}), 0.0).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return(inserted, nil).Once()

	// Act
	err := svc.FinishStroke(context.Background(), points, "#222222", 4, false)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, captured.ID, "笔画 ID 应在客户端生成")
	assert.Equal(t, "#222222", captured.Color)
	assert.InDelta(t, 4.0, captured.Width, 1e-9)
	// 可见列表是 Reload 结果的镜像，不做本地修补
	assert.Equal(t, inserted, svc.Strokes())
	repo.AssertExpectations(t)
}

func TestFinishStroke_SimplifyToleranceDerivedFromWidth(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)
	points := []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}

	// width=4 → 容差 0.3*4 = 1.2
	repo.On("Insert", mock.Anything, mock.Anything, 1.2).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return([]domain.Stroke(nil), nil).Once()
	require.NoError(t, svc.FinishStroke(context.Background(), points, "#fff", 4, true))

	// width=50 → 0.3*50 截断到上限 3
	repo.On("Insert", mock.Anything, mock.Anything, 3.0).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return([]domain.Stroke(nil), nil).Once()
	require.NoError(t, svc.FinishStroke(context.Background(), points, "#fff", 50, true))

	repo.AssertExpectations(t)
}

func TestFinishStroke_AppliesDefaultsBeforePersisting(t *testing.T) {
	// Arrange: 空颜色与非法宽度在写入前回落到默认值
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)
	points := []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}

	repo.On("Insert", mock.Anything, mock.MatchedBy(func(s domain.Stroke) bool {
		return s.Color == domain.DefaultColor && s.Width == domain.DefaultWidth
	}), mock.Anything).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return([]domain.Stroke(nil), nil).Once()

	// Act & Assert
	require.NoError(t, svc.FinishStroke(context.Background(), points, "", -1, false))
	repo.AssertExpectations(t)
}

func TestFinishStroke_StoreUnavailableIsSilentNoop(t *testing.T) {
	// Arrange: 连接尚未建立时用户动作静默吞掉，不报错也不刷新
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)
	points := []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}

	repo.On("Insert", mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrStoreUnavailable).Once()

	// Act
	err := svc.FinishStroke(context.Background(), points, "#fff", 3, false)

	// Assert
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Reload", 1) // 只有启动时那一次
}

func TestFinishStroke_PersistenceErrorPropagates(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)
	points := []domain.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}

	repo.On("Insert", mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrPersistence).Once()

	// Act
	err := svc.FinishStroke(context.Background(), points, "#fff", 3, false)

	// Assert: 语句被拒绝的错误向上传播，不重试
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrPersistence)
}

func TestUndo_DelegatesAndReloads(t *testing.T) {
	// Arrange: 撤销后可见列表以重新读取的结果为准
	repo := new(mocks.StrokeRepository)
	remaining := []domain.Stroke{{ID: "a"}, {ID: "b"}}
	svc := startedService(t, repo, []domain.Stroke{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	repo.On("Undo", mock.Anything).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return(remaining, nil).Once()

	// Act
	require.NoError(t, svc.Undo(context.Background()))

	// Assert
	got := svc.Strokes()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	repo.AssertExpectations(t)
}

func TestClearStrokes_EmptiesVisibleList(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, []domain.Stroke{{ID: "a"}})

	repo.On("Clear", mock.Anything).Return(nil).Once()
	repo.On("Reload", mock.Anything).Return([]domain.Stroke(nil), nil).Once()

	// Act
	require.NoError(t, svc.ClearStrokes(context.Background()))

	// Assert
	assert.Empty(t, svc.Strokes())
	repo.AssertExpectations(t)
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	initial := []domain.Stroke{{ID: "keep"}}
	svc := startedService(t, repo, initial)

	repo.On("Reload", mock.Anything).Return(nil, errors.New("io error")).Once()

	// Act
	err := svc.Refresh(context.Background())

	// Assert: 失败的刷新不改动上一次成功的列表
	require.Error(t, err)
	assert.Equal(t, initial, svc.Strokes())
}

func TestOperationsRejectedBeforeReady(t *testing.T) {
	repo := new(mocks.StrokeRepository)
	svc := service.NewSessionService(repo, testScreen, testViewport)
	ctx := context.Background()
	points := []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}

	assert.ErrorIs(t, svc.FinishStroke(ctx, points, "#fff", 3, false), service.ErrSessionNotReady)
	assert.ErrorIs(t, svc.Undo(ctx), service.ErrSessionNotReady)
	assert.ErrorIs(t, svc.ClearStrokes(ctx), service.ErrSessionNotReady)
	assert.ErrorIs(t, svc.Refresh(ctx), service.ErrSessionNotReady)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestScene_ConvertsPixelStrokesToWorld(t *testing.T) {
	// Arrange: 像素左上角 → 世界左上角，像素中心 → 世界原点
	repo := new(mocks.StrokeRepository)
	strokes := []domain.Stroke{{
		ID:     "s",
		Color:  "#fff",
		Width:  3,
		Points: []domain.Point{{X: 0, Y: 0}, {X: 400, Y: 300}},
	}}
	svc := startedService(t, repo, strokes)

	// Act
	scene := svc.Scene()

	// Assert
	require.Len(t, scene.Strokes, 1)
	pts := scene.Strokes[0].Points
	require.Len(t, pts, 2)
	assert.InDelta(t, -4.0, pts[0].X, 1e-9)
	assert.InDelta(t, 3.0, pts[0].Y, 1e-9)
	assert.InDelta(t, 0.0, pts[1].X, 1e-9)
	assert.InDelta(t, 0.0, pts[1].Y, 1e-9)
	assert.True(t, scene.Ready)
	assert.True(t, scene.GeometryCapable)
}

func TestRendererNotifiedOnStateChanges(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	recorder := new(sceneRecorder)

	repo.On("Init", mock.Anything).Return(false, nil).Once()
	repo.On("Reload", mock.Anything).Return([]domain.Stroke(nil), nil).Once()
	svc := service.NewSessionService(repo, testScreen, testViewport)
	svc.SetRenderer(recorder)

	// Act
	require.NoError(t, svc.Start(context.Background()))

	// Assert: 启动完成后至少推送过一帧场景，且能力标志透传
	require.NotEmpty(t, recorder.scenes)
	assert.True(t, recorder.last().Ready)
	assert.False(t, recorder.last().GeometryCapable)
}

func TestImportCloud(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	recorder := new(sceneRecorder)
	svc := startedService(t, repo, nil)
	svc.SetRenderer(recorder)

	pcd := []byte(`FIELDS x y z
TYPE F F F
POINTS 2
DATA ascii
0 0 0
1 2 3
`)

	// Act
	cloud, err := svc.ImportCloud("scan.pcd", pcd)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "scan.pcd", cloud.Name)
	assert.Len(t, cloud.Points, 2)
	require.Len(t, svc.Clouds(), 1)
	assert.Equal(t, "scan.pcd", recorder.last().Clouds[0].Name)

	// 清空点云后场景随之更新
	svc.ClearClouds()
	assert.Empty(t, svc.Clouds())
	assert.Empty(t, recorder.last().Clouds)
}

func TestImportCloud_DecodeFailureIsContained(t *testing.T) {
	// Arrange
	repo := new(mocks.StrokeRepository)
	svc := startedService(t, repo, nil)

	good := []byte("FIELDS x y z\nTYPE F F F\nDATA ascii\n0 0 0\n")
	_, err := svc.ImportCloud("ok.pcd", good)
	require.NoError(t, err)

	// Act: 第二个文件损坏
	_, err = svc.ImportCloud("broken.pcd", []byte("not a pcd"))

	// Assert: 返回解码错误，已加载的点云不受影响
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrDecodeFailed)
	assert.Len(t, svc.Clouds(), 1)
}
