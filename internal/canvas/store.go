// Package canvas 维护每个房间的共享画布笔画日志。
// 与 registry 相互独立；成员授权由网关在调用前完成，这里信任调用方。
package canvas

import (
	"sync"

	"chatpaint/internal/domain"
)

// strokeLog 是单个房间的笔画日志，mu 串行化追加与清空。
type strokeLog struct {
	mu      sync.Mutex
	strokes []domain.Stroke
}

// Store 按房间名组织笔画日志。
// 顶层 RWMutex 只保护 map 本身，日志在首次使用时惰性创建。
type Store struct {
	mu   sync.RWMutex
	logs map[string]*strokeLog
}

// NewStore 创建一个空的 Store。
func NewStore() *Store {
	return &Store{logs: make(map[string]*strokeLog)}
}

// log 返回房间的笔画日志，create 为 true 时按需创建。
func (s *Store) log(roomName string, create bool) *strokeLog {
	s.mu.RLock()
	l := s.logs[roomName]
	s.mu.RUnlock()
	if l != nil || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l = s.logs[roomName]; l == nil {
		l = &strokeLog{}
		s.logs[roomName] = l
	}
	return l
}

// Append 将一个笔画追加到房间日志末尾（到达顺序）。
func (s *Store) Append(roomName string, stroke domain.Stroke) {
	l := s.log(roomName, true)
	l.mu.Lock()
	l.strokes = append(l.strokes, stroke)
	l.mu.Unlock()
}

// Clear 原子地用空日志替换房间的笔画日志。
// 之前的笔画全部不可恢复，这不是增量撤销。
func (s *Store) Clear(roomName string) {
	l := s.log(roomName, true)
	l.mu.Lock()
	l.strokes = nil
	l.mu.Unlock()
}

// List 返回房间全部笔画的快照，按追加顺序排列。
// 未知房间返回空序列而不是错误。
func (s *Store) List(roomName string) []domain.Stroke {
	l := s.log(roomName, false)
	if l == nil {
		return []domain.Stroke{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Stroke, len(l.strokes))
	copy(out, l.strokes)
	return out
}
