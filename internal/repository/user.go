package repository

import (
	"context"
	"time"

	"chatpaint/internal/domain"
)

// UserRepository 定义了用户账号的存储和检索操作。
// 房间/画布核心不依赖这一层，它只服务于身份颁发。
type UserRepository interface {
	// FindByUsername 根据用户名查找用户。
	// 用户不存在时返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByPublicID 根据对外的不透明用户标识查找用户。
	// 用户不存在时返回 ErrUserNotFound。
	FindByPublicID(ctx context.Context, publicID string) (*domain.User, error)

	// Save 保存用户信息。唯一约束冲突时返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error

	// DeleteGuestsBefore 删除在 cutoff 之前创建的访客账号，返回删除数量。
	// 由后台清理任务周期性调用。
	DeleteGuestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
