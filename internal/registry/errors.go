package registry

import "errors"

// 核心状态层的业务错误。
// 网关层负责把这些错误翻译成对客户端的失败确认。
var (
	// ErrRoomExists 表示尝试创建的房间名已被占用 (Conflict)
	ErrRoomExists = errors.New("registry: room already exists")
	// ErrRoomNotFound 表示目标房间不存在 (NotFound)
	ErrRoomNotFound = errors.New("registry: room not found")
	// ErrNotMember 表示用户不是目标房间的成员 (NotFound)
	ErrNotMember = errors.New("registry: user is not a member of the room")
	// ErrAlreadyJoined 表示该 userId 在房间内已有成员身份 (Conflict)
	ErrAlreadyJoined = errors.New("registry: user already joined the room")
	// ErrNameTaken 表示昵称已被房间内其他成员占用 (Conflict)
	ErrNameTaken = errors.New("registry: display name already taken in the room")
	// ErrEmptyDisplayName 表示昵称为空或仅为空白字符 (InvalidInput)
	ErrEmptyDisplayName = errors.New("registry: display name is empty")
	// ErrEmptyText 表示消息正文为空或仅为空白字符 (InvalidInput)
	ErrEmptyText = errors.New("registry: message text is empty")
)
