package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"inkboard/internal/capture"
	"inkboard/internal/domain"
	"inkboard/internal/dto"
)

const (
	// 写一条消息的最长耗时
	writeWait = 10 * time.Second

	// 两次 Pong 之间允许的最大间隔
	pongWait = 60 * time.Second

	// Ping 周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// 单条入站消息的大小上限
	maxMessageSize = 64 * 1024
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 每个客户端持有自己的笔画采集器和画笔设置；
// 这些字段只在 Hub 主循环 goroutine 上被访问。
//
// send 通道从不 close：readPump 在连接还活着时随时可能 enqueue，
// 关闭改用 done 通道通知，避免向已关闭通道发送。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	capture  *capture.Capture
	color    string
	width    float64
	simplify bool

	log *logrus.Entry
}

// NewClient 创建客户端，采集器尺寸取 Hub 的当前缺省。
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		capture:  capture.New(h.screen, h.viewport),
		color:    domain.DefaultColor,
		width:    domain.DefaultWidth,
		simplify: h.simplify,
		log:      logrus.WithField("component", "ws-client"),
	}
}

// Run 启动读写两个 goroutine。
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// enqueue 非阻塞地把消息排进发送队列；排不进说明客户端写不过来，
// 丢掉这一帧由后续帧补齐。客户端已被关闭时静默丢弃。
func (c *Client) enqueue(payload []byte) {
	if payload == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warn("Client send queue full, dropping frame")
	}
}

// sendError 给该客户端单发一条错误通知。
func (c *Client) sendError(message string) {
	payload, err := json.Marshal(dto.ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// readPump 把 WebSocket 消息解析为事件后送进 Hub 主循环。
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-time.After(time.Second):
			c.log.Warn("Timeout requesting unregister from hub")
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("Unexpected websocket close")
			}
			return
		}

		var ev dto.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.sendError("malformed event payload")
			continue
		}

		select {
		case c.hub.events <- event{client: c, data: ev}:
		default:
			// 事件队列满，丢弃并告知客户端
			c.sendError("server busy, event dropped")
		}
	}
}

// writePump 把发送队列的消息写到连接上，并按周期发 Ping。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Hub 注销了该客户端
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
