package gateway

import (
	"chatpaint/internal/domain"
)

// 客户端可发起的请求类型（固定枚举集）。
const (
	ReqGetRooms        = "getRooms"
	ReqCreateRoom      = "createRoom"
	ReqJoinRoom        = "joinRoom"
	ReqLeaveRoom       = "leaveRoom"
	ReqGetMessages     = "getMessages"
	ReqSendMessage     = "sendMessage"
	ReqGetParticipants = "getParticipants"
	ReqJoinPaintRoom   = "joinPaintRoom"
	ReqClearCanvas     = "clearCanvas"
	ReqDraw            = "draw"
	ReqGetRoomDrawing  = "getRoomDrawing"
)

// 发往客户端的事件类型。
// 每个请求恰好产生一个 success 或 failed 确认；
// 有副作用的请求会先向受影响方发出对应的领域事件。
const (
	EvtSuccess         = "success"
	EvtFailed          = "failed"
	EvtRoomCreated     = "roomCreated"
	EvtRooms           = "rooms"
	EvtJoinedRoom      = "joinedRoom"
	EvtLeftRoom        = "leftRoom"
	EvtReceivedMessage = "receivedMessage"
	EvtMessages        = "messages"
	EvtParticipants    = "participants"
	EvtCanvasCleared   = "canvasCleared"
	EvtDraw            = "draw"
	EvtRoomDrawing     = "roomDrawing"
)

// Event 是发往客户端的出站事件信封。
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// GroupScope 区分两套互相独立的广播组命名空间。
// 聊天事件走 chat 组，画布事件走 paint 组，
// 加入聊天房间并不意味着加入对应的画布组（需显式 joinPaintRoom）。
type GroupScope string

const (
	ScopeChat  GroupScope = "chat"
	ScopePaint GroupScope = "paint"
)

// Sender 抽象了出站事件的发送能力与广播组的维护，由连接枢纽实现。
// 网关从不持有房间锁调用这些方法。
type Sender interface {
	// ToConnection 单播给某个连接。
	ToConnection(connectionID string, event Event)
	// ToGroup 发送给某个广播组的全部连接。
	ToGroup(scope GroupScope, room string, event Event)
	// ToGroupExcept 发送给广播组中除 exceptID 之外的连接。
	ToGroupExcept(scope GroupScope, room, exceptID string, event Event)
	// ToAll 发送给全部存活连接。
	ToAll(event Event)

	// JoinGroup / LeaveGroup 维护连接在广播组中的成员关系。
	JoinGroup(scope GroupScope, room, connectionID string)
	LeaveGroup(scope GroupScope, room, connectionID string)
	// LeaveAllGroups 将连接从所有广播组移除（断线清理兜底）。
	LeaveAllGroups(connectionID string)
}

// --- 出站事件负载 ---

// AckPayload 是 success/failed 确认的负载，带发起请求的名字。
type AckPayload struct {
	Request string `json:"request"`
	Reason  string `json:"reason,omitempty"`
}

type RoomPayload struct {
	Room string `json:"room"`
}

type RoomsPayload struct {
	Rooms []string `json:"rooms"`
}

type UserNamePayload struct {
	UserName string `json:"userName"`
}

type MessagePayload struct {
	Message domain.Message `json:"message"`
}

type MessagesPayload struct {
	Messages []domain.Message `json:"messages"`
}

type ParticipantsPayload struct {
	Participants []string `json:"participants"`
}

type StrokePayload struct {
	Stroke domain.Stroke `json:"stroke"`
}

type StrokesPayload struct {
	Strokes []domain.Stroke `json:"strokes"`
}

// --- 入站请求参数 ---

type roomArgs struct {
	Room string `json:"room"`
}

type joinArgs struct {
	Room     string `json:"room"`
	UserName string `json:"userName"`
}

type sendArgs struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type drawArgs struct {
	Room   string        `json:"room"`
	Stroke domain.Stroke `json:"stroke"`
}
