// Package gateway 是协议层：把客户端请求映射到 registry/canvas 的调用，
// 决定广播范围，并对每个请求发出统一的确认事件。
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"chatpaint/internal/canvas"
	"chatpaint/internal/registry"
)

// request 携带一次请求处理所需的全部上下文。
type request struct {
	connectionID string
	userID       string
	name         string
	payload      json.RawMessage
}

// Gateway 在传输层与房间/画布状态之间做协议调度。
// 方法可被多个连接并发调用，状态变更的串行化由 registry/canvas 内部完成；
// 所有事件都在状态调用返回之后发出，不在持锁期间做网络发送。
type Gateway struct {
	rooms    *registry.Registry
	canvas   *canvas.Store
	sender   Sender
	handlers map[string]func(req request)
	log      *logrus.Entry
}

// New 创建 Gateway 并注册请求分发表。
func New(rooms *registry.Registry, store *canvas.Store, sender Sender) *Gateway {
	if rooms == nil || store == nil || sender == nil {
		panic("registry, canvas store and sender must be non-nil for Gateway")
	}
	g := &Gateway{
		rooms:  rooms,
		canvas: store,
		sender: sender,
		log:    logrus.WithField("component", "gateway"),
	}
	// 显式的请求类型 -> 处理器分发表
	g.handlers = map[string]func(req request){
		ReqGetRooms:        g.handleGetRooms,
		ReqCreateRoom:      g.handleCreateRoom,
		ReqJoinRoom:        g.handleJoinRoom,
		ReqLeaveRoom:       g.handleLeaveRoom,
		ReqGetMessages:     g.handleGetMessages,
		ReqSendMessage:     g.handleSendMessage,
		ReqGetParticipants: g.handleGetParticipants,
		ReqJoinPaintRoom:   g.handleJoinPaintRoom,
		ReqClearCanvas:     g.handleClearCanvas,
		ReqDraw:            g.handleDraw,
		ReqGetRoomDrawing:  g.handleGetRoomDrawing,
	}
	return g
}

// HandleRequest 处理一条来自连接的请求。
// 无论结果如何，调用方都会恰好收到一个 success 或 failed 确认。
func (g *Gateway) HandleRequest(connectionID, userID, name string, payload json.RawMessage) {
	h, ok := g.handlers[name]
	if !ok {
		g.log.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"request":       name,
		}).Warn("Unknown request type")
		g.fail(connectionID, name, "unknown request")
		return
	}
	h(request{connectionID: connectionID, userID: userID, name: name, payload: payload})
}

// HandleDisconnect 处理传输层的连接关闭通知。
// 对该连接所属的每一个房间：解析昵称、移除成员身份、退出广播组、
// 向剩余成员发出 leftRoom 事件。必须覆盖全部房间，而不是只处理一个。
func (g *Gateway) HandleDisconnect(connectionID, userID string) {
	rooms := g.rooms.RoomsForConnection(connectionID)
	for _, room := range rooms {
		userName, _ := g.rooms.DisplayName(room, userID)
		g.rooms.RemoveMember(room, userID)
		g.sender.LeaveGroup(ScopeChat, room, connectionID)
		g.sender.ToGroup(ScopeChat, room, Event{Type: EvtLeftRoom, Payload: UserNamePayload{UserName: userName}})
	}
	// 画布组与聊天组相互独立，这里一并清理
	g.sender.LeaveAllGroups(connectionID)
	if len(rooms) > 0 {
		g.log.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"user_id":       userID,
			"rooms":         rooms,
		}).Info("Connection cleanup complete")
	}
}

// --- 请求处理器 ---

func (g *Gateway) handleGetRooms(req request) {
	names := g.rooms.RoomNames()
	g.sender.ToConnection(req.connectionID, Event{Type: EvtRooms, Payload: RoomsPayload{Rooms: names}})
	g.ok(req)
}

func (g *Gateway) handleCreateRoom(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	if err := g.rooms.CreateRoom(args.Room); err != nil {
		g.fail(req.connectionID, req.name, fmt.Sprintf("cannot create room with name '%s'", args.Room))
		return
	}
	g.sender.ToAll(Event{Type: EvtRoomCreated, Payload: RoomPayload{Room: args.Room}})
	g.ok(req)
}

func (g *Gateway) handleJoinRoom(req request) {
	var args joinArgs
	if !g.bind(req, &args) {
		return
	}
	if err := g.rooms.JoinRoom(args.Room, req.connectionID, req.userID, args.UserName); err != nil {
		g.fail(req.connectionID, req.name,
			fmt.Sprintf("cannot join room '%s' with userName '%s'", args.Room, args.UserName))
		return
	}
	// 先入组，joinedRoom 事件包含新成员自己
	g.sender.JoinGroup(ScopeChat, args.Room, req.connectionID)
	g.sender.ToGroup(ScopeChat, args.Room, Event{Type: EvtJoinedRoom, Payload: UserNamePayload{UserName: args.UserName}})
	g.ok(req)
}

func (g *Gateway) handleLeaveRoom(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	userName, ok := g.rooms.DisplayName(args.Room, req.userID)
	if !ok {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	if err := g.rooms.LeaveRoom(args.Room, req.userID); err != nil {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	// 先出组，leftRoom 事件只发给留下的成员
	g.sender.LeaveGroup(ScopeChat, args.Room, req.connectionID)
	g.sender.ToGroup(ScopeChat, args.Room, Event{Type: EvtLeftRoom, Payload: UserNamePayload{UserName: userName}})
	g.ok(req)
}

func (g *Gateway) handleGetMessages(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	messages, err := g.rooms.Messages(args.Room, req.userID)
	if err != nil {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	g.sender.ToConnection(req.connectionID, Event{Type: EvtMessages, Payload: MessagesPayload{Messages: messages}})
	g.ok(req)
}

func (g *Gateway) handleSendMessage(req request) {
	var args sendArgs
	if !g.bind(req, &args) {
		return
	}
	message, err := g.rooms.AppendMessage(args.Room, req.userID, args.Text)
	if err != nil {
		g.fail(req.connectionID, req.name, g.sendMessageReason(args.Room, err))
		return
	}
	g.sender.ToGroup(ScopeChat, args.Room, Event{Type: EvtReceivedMessage, Payload: MessagePayload{Message: message}})
	g.ok(req)
}

func (g *Gateway) handleGetParticipants(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	participants, err := g.rooms.ParticipantNames(args.Room, req.userID)
	if err != nil {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	g.sender.ToConnection(req.connectionID, Event{Type: EvtParticipants, Payload: ParticipantsPayload{Participants: participants}})
	g.ok(req)
}

// handleJoinPaintRoom 只做网关内部的画布组加入，不产生领域事件。
// 聊天组与画布组是两套命名空间，必须分别加入。
func (g *Gateway) handleJoinPaintRoom(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	if !g.rooms.IsMember(args.Room, req.userID) {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	g.sender.JoinGroup(ScopePaint, args.Room, req.connectionID)
	g.ok(req)
}

func (g *Gateway) handleClearCanvas(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	if !g.rooms.IsMember(args.Room, req.userID) {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	g.canvas.Clear(args.Room)
	// 清空信号不发给发起者：其本地画布已经清过了
	g.sender.ToGroupExcept(ScopePaint, args.Room, req.connectionID, Event{Type: EvtCanvasCleared})
	g.ok(req)
}

func (g *Gateway) handleDraw(req request) {
	var args drawArgs
	if !g.bind(req, &args) {
		return
	}
	if !g.rooms.IsMember(args.Room, req.userID) {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	if !args.Stroke.Status.Valid() {
		g.fail(req.connectionID, req.name, fmt.Sprintf("invalid stroke status '%s'", args.Stroke.Status))
		return
	}
	args.Stroke.CreatedDate = time.Now().UTC()
	g.canvas.Append(args.Room, args.Stroke)
	// 笔画不回发给发起者：其本地已经画上了
	g.sender.ToGroupExcept(ScopePaint, args.Room, req.connectionID, Event{Type: EvtDraw, Payload: StrokePayload{Stroke: args.Stroke}})
	g.ok(req)
}

func (g *Gateway) handleGetRoomDrawing(req request) {
	var args roomArgs
	if !g.bind(req, &args) {
		return
	}
	if !g.rooms.IsMember(args.Room, req.userID) {
		g.fail(req.connectionID, req.name, fmt.Sprintf("user is not in room '%s'", args.Room))
		return
	}
	strokes := g.canvas.List(args.Room)
	g.sender.ToConnection(req.connectionID, Event{Type: EvtRoomDrawing, Payload: StrokesPayload{Strokes: strokes}})
	g.ok(req)
}

// --- 辅助方法 ---

// bind 解析请求负载，失败时直接发出 failed 确认。
func (g *Gateway) bind(req request, v interface{}) bool {
	if err := json.Unmarshal(req.payload, v); err != nil {
		g.log.WithFields(logrus.Fields{
			"connection_id": req.connectionID,
			"request":       req.name,
		}).WithError(err).Warn("Failed to unmarshal request payload")
		g.fail(req.connectionID, req.name, "invalid payload")
		return false
	}
	return true
}

// ok 向调用方发出带请求名的成功确认。
func (g *Gateway) ok(req request) {
	g.sender.ToConnection(req.connectionID, Event{Type: EvtSuccess, Payload: AckPayload{Request: req.name}})
}

// fail 向调用方发出带请求名与原因的失败确认。
// 所有业务失败都是调用方可恢复的：网关不断开连接，也不做重试。
func (g *Gateway) fail(connectionID, requestName, reason string) {
	g.sender.ToConnection(connectionID, Event{Type: EvtFailed, Payload: AckPayload{Request: requestName, Reason: reason}})
}

// sendMessageReason 区分 "不在房间" 与 "空消息" 两种失败原因。
func (g *Gateway) sendMessageReason(room string, err error) string {
	if errors.Is(err, registry.ErrEmptyText) {
		return "message text is empty"
	}
	return fmt.Sprintf("user is not in room '%s'", room)
}
