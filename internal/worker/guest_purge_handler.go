package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"chatpaint/internal/repository"
	"chatpaint/internal/tasks"
)

// GuestPurgeHandler 处理过期访客账号清理任务
type GuestPurgeHandler struct {
	userRepo repository.UserRepository
}

// NewGuestPurgeHandler 创建 Handler 实例
func NewGuestPurgeHandler(userRepo repository.UserRepository) *GuestPurgeHandler {
	if userRepo == nil {
		panic("UserRepository cannot be nil for GuestPurgeHandler")
	}
	return &GuestPurgeHandler{userRepo: userRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
// 删除创建时间早于 now-MaxAge 的访客账号，这些账号的令牌已经过期。
func (h *GuestPurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
	})
	logCtx.Info("Processing guest purge task...")

	var payload tasks.GuestPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.MaxAge <= 0 {
		logCtx.Error("Guest purge task has non-positive max age")
		return fmt.Errorf("invalid max age %v: %w", payload.MaxAge, asynq.SkipRetry)
	}

	cutoff := time.Now().UTC().Add(-payload.MaxAge)
	deleted, err := h.userRepo.DeleteGuestsBefore(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Failed to delete expired guest accounts")
		return fmt.Errorf("failed to delete expired guests: %w", err)
	}

	logCtx.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Guest purge task processed successfully")
	return nil
}
