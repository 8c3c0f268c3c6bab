// Package hub 维护全部存活的 WebSocket 连接和广播组，
// 并以此实现网关的出站事件发送抽象 (gateway.Sender)。
package hub

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"chatpaint/internal/gateway"
)

// Hub 管理连接集合与广播组。
// 发送使用非阻塞写入：单个慢客户端不能阻塞广播，
// 发送队列满时丢弃该客户端的这条消息并记录警告。
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Client             // connectionID -> 客户端
	groups map[string]map[string]struct{} // scope:room -> connectionID 集合
}

// NewHub 创建一个空的 Hub。
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Client),
		groups: make(map[string]map[string]struct{}),
	}
}

func groupKey(scope gateway.GroupScope, room string) string {
	return string(scope) + ":" + room
}

// Register 将客户端纳入连接集合。
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	count := len(h.conns)
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"connection_id": c.ID(),
		"user_id":       c.UserID(),
		"connections":   count,
	}).Info("Client registered to Hub")
}

// Unregister 将客户端移出连接集合。
// 广播组的清理由网关的断线处理负责（LeaveAllGroups）。
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	count := len(h.conns)
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"connection_id": c.ID(),
		"user_id":       c.UserID(),
		"connections":   count,
	}).Info("Client unregistered from Hub")
}

// --- gateway.Sender 实现 ---

// ToConnection 单播一个事件给指定连接。
func (h *Hub) ToConnection(connectionID string, event gateway.Event) {
	h.mu.RLock()
	c := h.conns[connectionID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("event", event.Type).Error("Failed to marshal event")
		return
	}
	c.enqueue(data)
}

// ToGroup 把事件发给广播组内的全部连接。
func (h *Hub) ToGroup(scope gateway.GroupScope, room string, event gateway.Event) {
	h.send(h.groupClients(scope, room, ""), event)
}

// ToGroupExcept 把事件发给广播组内除 exceptID 外的连接。
func (h *Hub) ToGroupExcept(scope gateway.GroupScope, room, exceptID string, event gateway.Event) {
	h.send(h.groupClients(scope, room, exceptID), event)
}

// ToAll 把事件发给全部存活连接。
func (h *Hub) ToAll(event gateway.Event) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	h.send(clients, event)
}

// JoinGroup 把连接加入广播组。
func (h *Hub) JoinGroup(scope gateway.GroupScope, room, connectionID string) {
	key := groupKey(scope, room)
	h.mu.Lock()
	set, ok := h.groups[key]
	if !ok {
		set = make(map[string]struct{})
		h.groups[key] = set
	}
	set[connectionID] = struct{}{}
	h.mu.Unlock()
}

// LeaveGroup 把连接移出广播组，组空后删除该组。
func (h *Hub) LeaveGroup(scope gateway.GroupScope, room, connectionID string) {
	key := groupKey(scope, room)
	h.mu.Lock()
	if set, ok := h.groups[key]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(h.groups, key)
		}
	}
	h.mu.Unlock()
}

// LeaveAllGroups 把连接从所有广播组移除。
func (h *Hub) LeaveAllGroups(connectionID string) {
	h.mu.Lock()
	for key, set := range h.groups {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(h.groups, key)
		}
	}
	h.mu.Unlock()
}

// --- 内部发送辅助 ---

// groupClients 在读锁内收集接收方快照，发送在释放锁之后进行。
func (h *Hub) groupClients(scope gateway.GroupScope, room, exceptID string) []*Client {
	key := groupKey(scope, room)
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.groups[key]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for id := range set {
		if id == exceptID {
			continue
		}
		if c := h.conns[id]; c != nil {
			clients = append(clients, c)
		}
	}
	return clients
}

func (h *Hub) send(clients []*Client, event gateway.Event) {
	if len(clients) == 0 {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("event", event.Type).Error("Failed to marshal event")
		return
	}
	for _, c := range clients {
		c.enqueue(data)
	}
}
