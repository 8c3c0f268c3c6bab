package domain

import "time"

// Member 表示一个用户在某个房间内的成员身份。
// 同一个用户可以用不同的连接加入不同的房间，
// 但在同一个房间内，每个 userId 只能有一个成员身份（一个连接、一个昵称）。
type Member struct {
	UserID       string `json:"userId"`       // 认证层颁发的不透明用户标识
	ConnectionID string `json:"connectionId"` // 传输层为本次物理连接分配的标识
	DisplayName  string `json:"userName"`     // 加入房间时选择的昵称，房间内唯一
}

// Message 表示房间聊天记录中的一条消息。追加后不可变。
type Message struct {
	UserName    string    `json:"userName"`    // 发送者在该房间内的昵称
	Text        string    `json:"text"`        // 消息正文
	CreatedDate time.Time `json:"createdDate"` // 服务端分配的时间戳，房间内单调不减
}
