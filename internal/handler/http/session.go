package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkboard/internal/domain"
	"inkboard/internal/service"
)

// SessionHandler 暴露绘图会话的 HTTP 操作面。
// WebSocket 之外的客户端（脚本、测试）用它完成同样的动作。
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler 创建会话 Handler。
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	if svc == nil {
		panic("session service cannot be nil for SessionHandler")
	}
	return &SessionHandler{svc: svc}
}

// Health 返回会话状态：是否 ready、几何能力是否可用。
func (h *SessionHandler) Health(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, gin.H{
		"ready":            h.svc.Ready(),
		"geometry_capable": h.svc.GeometryCapable(),
	})
}

// Scene 返回当前世界坐标场景（渲染层视角）。
func (h *SessionHandler) Scene(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, h.svc.Scene())
}

// Strokes 返回当前可见笔画列表（像素坐标，存储视角）。
func (h *SessionHandler) Strokes(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, gin.H{"strokes": h.svc.Strokes()})
}

// createStrokeRequest 是 POST /api/strokes 的请求体。
type createStrokeRequest struct {
	Points   []domain.Point `json:"points" binding:"required"`
	Color    string         `json:"color"`
	Width    float64        `json:"width"`
	Simplify bool           `json:"simplify"`
}

// CreateStroke 持久化一条已采集完成的笔画（像素坐标点列）。
// 少于两个点的请求被接受但不产生任何写入。
func (h *SessionHandler) CreateStroke(c *gin.Context) {
	var req createStrokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid stroke payload: "+err.Error())
		return
	}

	if err := h.svc.FinishStroke(c.Request.Context(), req.Points, req.Color, req.Width, req.Simplify); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, gin.H{"strokes": h.svc.Strokes()})
}

// Undo 撤销最近创建的一条笔画。
func (h *SessionHandler) Undo(c *gin.Context) {
	if err := h.svc.Undo(c.Request.Context()); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"strokes": h.svc.Strokes()})
}

// Clear 删除全部笔画。
func (h *SessionHandler) Clear(c *gin.Context) {
	if err := h.svc.ClearStrokes(c.Request.Context()); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"strokes": h.svc.Strokes()})
}

// Refresh 从存储重读笔画列表。
func (h *SessionHandler) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context()); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"strokes": h.svc.Strokes()})
}
