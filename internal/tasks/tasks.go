package tasks

import (
	"encoding/json"
	"time"
)

// 定义任务类型常量
const (
	TypeGuestPurge = "auth:purge_guests" // 过期访客账号清理任务类型
)

// GuestPurgePayload 定义了访客账号清理任务的数据结构
type GuestPurgePayload struct {
	// MaxAge 是访客账号的最大存活时长，超过则删除
	MaxAge time.Duration `json:"max_age"`
}

// NewGuestPurgeTask 创建访客账号清理任务的 payload
func NewGuestPurgeTask(maxAge time.Duration) ([]byte, error) {
	payload := GuestPurgePayload{MaxAge: maxAge}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}
