package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"inkboard/internal/hub"
)

// Handler 负责把 HTTP 请求升级为 WebSocket 并注册到 Hub。
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewHandler 创建 WebSocket Handler。
func NewHandler(h *hub.Hub) *Handler {
	if h == nil {
		panic("hub cannot be nil for websocket Handler")
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 本地单用户画板，放开同源限制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
	}
}

// HandleConnection 处理 GET /ws。
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写了 HTTP 错误响应，记日志即可
		logrus.WithError(err).Error("Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn)
	h.hub.Register(client)
	client.Run()
}
