// Package hub 维护 WebSocket 客户端集合，向它们广播场景帧，
// 并把各客户端的指针事件串行化地送进笔画采集与会话层。
//
// 所有事件处理都发生在 Run 的单个 goroutine 上，采集器与会话调用
// 因此天然串行，不需要额外加锁。
package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"inkboard/internal/dto"
	"inkboard/internal/geom"
	"inkboard/internal/render"
	"inkboard/internal/service"
)

// event 把客户端事件和它的来源绑在一起送进 Hub 主循环。
type event struct {
	client *Client
	data   dto.ClientEvent
}

// Hub 是单块画板的客户端集线器，同时实现 render.Renderer：
// 会话层每次状态变化都会经由 RenderScene 广播给所有客户端。
type Hub struct {
	session *service.SessionService

	// 新连接的采集器初始尺寸（客户端 hello 后更新）
	screen   geom.Size
	viewport geom.Size
	simplify bool

	register   chan *Client
	unregister chan *Client
	events     chan event
	broadcast  chan []byte

	clients map[*Client]bool

	ctx context.Context
	log *logrus.Entry
}

// New 创建 Hub。simplifyDefault 是新连接的笔画简化开关缺省值。
func New(session *service.SessionService, screen, viewport geom.Size, simplifyDefault bool) *Hub {
	if session == nil {
		panic("session service cannot be nil for Hub")
	}
	return &Hub{
		session:    session,
		screen:     screen,
		viewport:   viewport,
		simplify:   simplifyDefault,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan event, 256),
		broadcast:  make(chan []byte, 8),
		clients:    make(map[*Client]bool),
		log:        logrus.WithField("component", "hub"),
	}
}

var _ render.Renderer = (*Hub)(nil)

// Register 把一个新客户端交给主循环接管。
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// RenderScene 实现 render.Renderer：把场景帧排入广播队列。
// 队列满时丢弃本帧——随后的状态变化总会再推一帧，不值得阻塞会话层。
func (h *Hub) RenderScene(scene render.Scene) {
	payload, err := json.Marshal(dto.NewSceneMessage(scene))
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal scene frame")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("Broadcast queue full, dropping scene frame")
	}
}

// Run 启动主循环，直到 ctx 取消。
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	h.log.Info("Hub running")

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.done)
				delete(h.clients, client)
			}
			h.log.Info("Hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.WithField("clients", len(h.clients)).Info("Client registered")
			// 新客户端立刻收到一帧当前场景
			client.enqueue(h.sceneSnapshot())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.done)
				h.log.WithField("clients", len(h.clients)).Info("Client unregistered")
			}

		case payload := <-h.broadcast:
			for client := range h.clients {
				client.enqueue(payload)
			}

		case ev := <-h.events:
			h.handleEvent(ev)
		}
	}
}

// sceneSnapshot 序列化当前场景，失败时返回 nil。
func (h *Hub) sceneSnapshot() []byte {
	payload, err := json.Marshal(dto.NewSceneMessage(h.session.Scene()))
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal scene snapshot")
		return nil
	}
	return payload
}

// handleEvent 处理一个客户端事件。指针事件先过采集器，
// pointer_up 时把成形的笔画交给会话层持久化。
func (h *Hub) handleEvent(ev event) {
	c := ev.client
	data := ev.data

	switch data.Type {
	case "hello":
		if data.Screen != nil && data.Viewport != nil {
			c.capture.SetSizes(*data.Screen, *data.Viewport)
			h.session.SetView(*data.Screen, *data.Viewport)
		}

	case "set_mode":
		// draw 以外的模式（如 pan）暂停采集；
		// 绘制中途切走的笔画按约定直接丢弃
		c.capture.SetDisabled(data.Mode != "draw")

	case "pointer_down":
		if data.Color != "" {
			c.color = data.Color
		}
		if data.Width > 0 {
			c.width = data.Width
		}
		if data.Simplify != nil {
			c.simplify = *data.Simplify
		}
		c.capture.PointerDown(data.X, data.Y)

	case "pointer_move":
		c.capture.PointerMove(data.X, data.Y)

	case "pointer_up":
		points, ok := c.capture.PointerUp()
		if !ok {
			return
		}
		err := h.session.FinishStroke(h.ctx, points, c.color, c.width, c.simplify)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotReady) {
				c.sendError("session is still loading")
				return
			}
			h.log.WithError(err).Error("Failed to persist stroke")
			c.sendError("failed to persist stroke")
		}

	default:
		c.sendError("unknown event type: " + data.Type)
	}
}
