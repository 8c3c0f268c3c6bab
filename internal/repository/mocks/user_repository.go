// Package mocks 提供 repository 接口的 testify Mock 实现，仅用于测试。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chatpaint/internal/domain"
)

// UserRepository 是 repository.UserRepository 的 Mock 实现
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if v := args.Get(0); v != nil {
		user = v.(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.User, error) {
	args := m.Called(ctx, publicID)
	var user *domain.User
	if v := args.Get(0); v != nil {
		user = v.(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) DeleteGuestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
