package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"chatpaint/internal/domain"
	"chatpaint/internal/repository"
)

// AuthService 负责身份颁发：注册、登录和访客令牌。
// 房间核心只消费这里签发的不透明用户标识 (User.PublicID)，从不回查。
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService 创建 AuthService 实例。
// jwtSecretKey 应从配置读取；jwtExpiryHours 定义令牌过期的小时数。
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// TokenExpiry 返回签发令牌的有效期（访客清理任务以此为界）。
func (s *AuthService) TokenExpiry() time.Duration {
	return s.jwtExpiry
}

// Register 处理用户注册。
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": username, "email": email})

	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		PublicID: uuid.NewString(),
		Username: username,
		Password: hashedPassword,
		Email:    email,
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: username already exists")
			return nil, ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	logCtx.WithField("public_id", user.PublicID).Info("User registered successfully")
	user.Password = "" // 清除密码哈希再返回
	return user, nil
}

// Login 处理用户登录，成功时返回签名的 JWT。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		// 对客户端统一返回认证失败
		return "", ErrAuthenticationFailed
	}
	if user == nil || user.IsGuest {
		logCtx.Warn("Login attempt failed: no such account")
		return "", ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return "", ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user.PublicID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", ErrInternalServer
	}

	logCtx.WithField("public_id", user.PublicID).Info("User logged in successfully")
	return token, nil
}

// Guest 为匿名访客签发令牌：生成新的不透明用户标识，
// 记录一条访客账号（过期后由后台任务清理），并返回签名的 JWT。
func (s *AuthService) Guest(ctx context.Context) (string, error) {
	publicID := uuid.NewString()
	logCtx := logrus.WithField("public_id", publicID)

	user := &domain.User{
		PublicID: publicID,
		Username: "guest-" + publicID[:8],
		IsGuest:  true,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		logCtx.WithError(err).Error("Failed to save guest user")
		return "", ErrInternalServer
	}

	token, err := s.generateJWT(publicID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token for guest")
		return "", ErrInternalServer
	}

	logCtx.Info("Guest token issued")
	return token, nil
}

// --- 私有辅助函数 ---

// hashPassword 使用 bcrypt 对密码进行哈希处理
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

// checkPassword 验证提供的密码是否与存储的哈希匹配
func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateJWT 为指定用户标识生成 JWT Token
func (s *AuthService) generateJWT(publicID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": publicID,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
