// Package domain 定义了应用程序中使用的数据结构。
package domain

import "time"

// User 表示认证层管理的一个账号。
// 房间/画布核心只消费 PublicID，从不读取这张表。
type User struct {
	ID        uint      `gorm:"primaryKey"`                                    // 数据库主键
	PublicID  string    `gorm:"type:varchar(36);uniqueIndex:idx_public_id;not null"` // 对外的不透明用户标识 (uuid)，写入 JWT
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text"`                                     // bcrypt 哈希，访客账号为空
	Email     string    `gorm:"type:varchar(191);index:idx_email"`
	IsGuest   bool      `gorm:"not null;default:false"`                        // 访客账号由后台任务定期清理
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
