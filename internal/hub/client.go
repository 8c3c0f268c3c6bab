package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"chatpaint/internal/gateway"
)

// 包级别的 WebSocket 常量，供读写泵使用
const (
	// 向对端写入一条消息允许的最长时间
	writeWait = 10 * time.Second

	// 等待下一个 pong 的最长时间
	pongWait = 60 * time.Second

	// 发送 ping 的周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// 允许对端发送的最大消息字节数
	maxMessageSize = 4096
)

// envelope 是入站请求的信封：{"type": "...", "payload": {...}}
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
type Client struct {
	id     string          // 传输层分配的连接标识
	userID string          // 认证层颁发的用户标识
	conn   *websocket.Conn // WebSocket 连接
	send   chan []byte     // 发往此客户端的缓冲通道
	hub    *Hub
	gw     *gateway.Gateway
}

// NewClient 创建一个新的 Client 实例。
func NewClient(h *Hub, gw *gateway.Gateway, conn *websocket.Conn, connectionID, userID string) *Client {
	return &Client{
		id:     connectionID,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    h,
		gw:     gw,
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Run 注册客户端并启动读写 goroutine。
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// enqueue 非阻塞地把一条已序列化的事件放入发送队列。
// 队列满说明客户端消费过慢，丢弃并记录警告，由读写泵负责后续断开。
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{
			"connection_id": c.id,
			"user_id":       c.userID,
		}).Warn("Client send channel full, dropping event")
	}
}

// readPump 把 WebSocket 消息解析成请求并交给网关处理。
// 它在自己的 goroutine 中运行，退出时触发注销与断线清理。
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		// 断线清理：解除该连接在所有房间的成员身份并通知剩余成员
		c.gw.HandleDisconnect(c.id, c.userID)
		c.conn.Close()
		logrus.WithFields(logrus.Fields{
			"connection_id": c.id,
			"user_id":       c.userID,
		}).Info("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"connection_id": c.id, "user_id": c.userID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			// 帧格式错误不断开连接，只回一个失败确认
			c.hub.ToConnection(c.id, gateway.Event{
				Type:    gateway.EvtFailed,
				Payload: gateway.AckPayload{Request: "unknown", Reason: "malformed request"},
			})
			continue
		}
		c.gw.HandleRequest(c.id, c.userID, env.Type, env.Payload)
	}
}

// writePump 把发送队列中的事件写入 WebSocket 连接，并定期发送 ping。
// 写失败或 ping 失败即退出；连接关闭会让 readPump 一并退出并完成清理。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logrus.WithFields(logrus.Fields{
					"connection_id": c.id,
					"user_id":       c.userID,
				}).WithError(err).Warn("Failed to write message to websocket")
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
