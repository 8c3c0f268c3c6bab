package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"chatpaint/internal/gateway"
	"chatpaint/internal/hub"
)

// WebSocketHandler 负责处理 WebSocket 升级请求并创建客户端
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	gw       *gateway.Gateway
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, gw *gateway.Gateway) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if gw == nil {
		panic("Gateway cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: 生产环境按配置校验 Origin
			return true
		},
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h, gw: gw}
}

// HandleConnection 处理 WebSocket 连接请求。
// 认证由 Auth 中间件完成；每个物理连接分配一个新的连接标识。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(string)
	if !ok || userID == "" {
		logrus.Error("WS Handler: user ID in context is not a string")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写入了 HTTP 错误响应，这里只记日志
		logrus.WithError(err).WithField("user_id", userID).Error("WS Handler: failed to upgrade connection")
		return
	}

	connectionID := uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"user_id":       userID,
	}).Info("WS Handler: connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, h.gw, conn, connectionID, userID)
	client.Run()
}
