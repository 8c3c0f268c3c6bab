// Package registry 维护房间、成员关系和聊天记录的权威状态。
// 纯内存状态，进程重启即丢失；不做任何 I/O。
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"chatpaint/internal/domain"
)

// room 是单个房间的权威状态。
// mu 串行化对成员列表和聊天记录的所有变更，
// "检查再写入" 的复合操作必须在持锁期间一次完成。
type room struct {
	mu        sync.Mutex
	name      string
	members   []domain.Member  // 加入顺序
	messages  []domain.Message // 追加顺序（即服务端到达顺序）
	lastStamp time.Time        // 保证消息时间戳在房间内单调不减
}

// Registry 拥有全部房间的集合，以及连接到房间的反向索引。
//
// 锁的层级：room.mu 在前，indexMu 在后；mu 只保护顶层 map，
// 获取到 *room 之后立即释放，绝不与另外两把锁嵌套持有。
// 房间创建后永不删除，因此拿到的 *room 指针始终有效。
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	order []string // 房间创建顺序

	// 反向索引：connectionId -> 该连接当前所属的房间名集合。
	// 这是派生状态，只用于断线清理，必须与成员列表同步变更。
	indexMu sync.Mutex
	index   map[string]map[string]struct{}
}

// New 创建一个空的 Registry。
func New() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		index: make(map[string]map[string]struct{}),
	}
}

// room 按名字查找房间，不存在时返回 nil。
func (r *Registry) room(name string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[name]
}

// CreateRoom 创建一个新的空房间。
// 房间名已存在时返回 ErrRoomExists，且不产生任何变更。
func (r *Registry) CreateRoom(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; ok {
		return ErrRoomExists
	}
	r.rooms[name] = &room{name: name}
	r.order = append(r.order, name)
	return nil
}

// RoomNames 返回全部房间名的快照，按创建顺序排列。
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// JoinRoom 为 userID 在房间内建立成员身份。
// 校验与写入在房间锁内一次完成：房间存在、昵称非空、
// userId 未加入过、昵称未被占用。成功时同步更新反向索引。
//
// 同一个 userId 用新连接重复加入会被当作冲突拒绝，
// 旧的成员身份只能由显式离开或断线清理移除。
func (r *Registry) JoinRoom(roomName, connectionID, userID, displayName string) error {
	if strings.TrimSpace(displayName) == "" {
		return ErrEmptyDisplayName
	}
	rm := r.room(roomName)
	if rm == nil {
		return ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, m := range rm.members {
		if m.UserID == userID {
			return ErrAlreadyJoined
		}
		if m.DisplayName == displayName {
			return ErrNameTaken
		}
	}
	rm.members = append(rm.members, domain.Member{
		UserID:       userID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
	})
	r.indexAdd(connectionID, roomName)
	return nil
}

// LeaveRoom 移除 userID 在房间内的成员身份。
func (r *Registry) LeaveRoom(roomName, userID string) error {
	rm := r.room(roomName)
	if rm == nil {
		return ErrRoomNotFound
	}
	if !rm.removeMember(r, userID) {
		return ErrNotMember
	}
	return nil
}

// IsMember 只读地检查 userID 是否为房间成员。
// 网关层把它用作所有房间级操作的授权门槛。
func (r *Registry) IsMember(roomName, userID string) bool {
	rm := r.room(roomName)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.memberIndex(userID) >= 0
}

// AppendMessage 以 userID 在房间内的昵称追加一条消息并返回它。
// 时间戳由服务端分配，并保证在单个房间内单调不减。
func (r *Registry) AppendMessage(roomName, userID, text string) (domain.Message, error) {
	rm := r.room(roomName)
	if rm == nil {
		return domain.Message{}, ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	i := rm.memberIndex(userID)
	if i < 0 {
		return domain.Message{}, ErrNotMember
	}
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, ErrEmptyText
	}

	now := time.Now().UTC()
	if now.Before(rm.lastStamp) {
		now = rm.lastStamp
	}
	rm.lastStamp = now

	msg := domain.Message{
		UserName:    rm.members[i].DisplayName,
		Text:        text,
		CreatedDate: now,
	}
	rm.messages = append(rm.messages, msg)
	return msg, nil
}

// Messages 返回房间完整聊天记录的快照，最旧的在前。
// 非成员不允许读取。
func (r *Registry) Messages(roomName, userID string) ([]domain.Message, error) {
	rm := r.room(roomName)
	if rm == nil {
		return nil, ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.memberIndex(userID) < 0 {
		return nil, ErrNotMember
	}
	out := make([]domain.Message, len(rm.messages))
	copy(out, rm.messages)
	return out, nil
}

// ParticipantNames 返回当前成员昵称的快照，按加入顺序排列。
// 非成员不允许读取。
func (r *Registry) ParticipantNames(roomName, userID string) ([]string, error) {
	rm := r.room(roomName)
	if rm == nil {
		return nil, ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.memberIndex(userID) < 0 {
		return nil, ErrNotMember
	}
	names := make([]string, 0, len(rm.members))
	for _, m := range rm.members {
		names = append(names, m.DisplayName)
	}
	return names, nil
}

// DisplayName 解析 userID 在房间内使用的昵称。
func (r *Registry) DisplayName(roomName, userID string) (string, bool) {
	rm := r.room(roomName)
	if rm == nil {
		return "", false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if i := rm.memberIndex(userID); i >= 0 {
		return rm.members[i].DisplayName, true
	}
	return "", false
}

// RoomsForConnection 通过反向索引返回该连接当前所属的全部房间名。
// 结果排序后返回，便于调用方得到确定的遍历顺序。
func (r *Registry) RoomsForConnection(connectionID string) []string {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	set := r.index[connectionID]
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveMember 按 userID 移除成员身份，是断线清理使用的原语。
// 成员不存在时返回 false，不产生变更。
func (r *Registry) RemoveMember(roomName, userID string) bool {
	rm := r.room(roomName)
	if rm == nil {
		return false
	}
	return rm.removeMember(r, userID)
}

// RemoveMemberByConnection 移除该连接在所有房间内的成员身份。
// 正常路径下网关会逐房间调用 RemoveMember；这里是兜底原语。
func (r *Registry) RemoveMemberByConnection(connectionID string) {
	for _, name := range r.RoomsForConnection(connectionID) {
		rm := r.room(name)
		if rm == nil {
			continue
		}
		rm.mu.Lock()
		for i, m := range rm.members {
			if m.ConnectionID == connectionID {
				rm.members = append(rm.members[:i], rm.members[i+1:]...)
				r.indexRemove(connectionID, name)
				break
			}
		}
		rm.mu.Unlock()
	}
}

// --- room 内部方法（调用方必须持有 rm.mu）---

// memberIndex 返回 userID 在成员列表中的下标，不存在时返回 -1。
func (rm *room) memberIndex(userID string) int {
	for i, m := range rm.members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// removeMember 加锁移除成员并同步反向索引。
func (rm *room) removeMember(r *Registry, userID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	i := rm.memberIndex(userID)
	if i < 0 {
		return false
	}
	connectionID := rm.members[i].ConnectionID
	rm.members = append(rm.members[:i], rm.members[i+1:]...)
	r.indexRemove(connectionID, rm.name)
	return true
}

// --- 反向索引维护（调用方必须持有对应的 room.mu）---

func (r *Registry) indexAdd(connectionID, roomName string) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	set, ok := r.index[connectionID]
	if !ok {
		set = make(map[string]struct{})
		r.index[connectionID] = set
	}
	set[roomName] = struct{}{}
}

func (r *Registry) indexRemove(connectionID, roomName string) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()
	set, ok := r.index[connectionID]
	if !ok {
		// 成员列表与反向索引失去同步，属于不可达的内部错误，
		// 立即崩溃好过带着脏索引继续运行。
		panic("registry: connection index out of sync with membership (missing connection)")
	}
	if _, ok := set[roomName]; !ok {
		panic("registry: connection index out of sync with membership (missing room)")
	}
	delete(set, roomName)
	if len(set) == 0 {
		delete(r.index, connectionID)
	}
}
