package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// ErrMissingToken 表示请求既没有 Authorization 头也没有 access_token 参数
var ErrMissingToken = errors.New("missing access token")

// Auth 返回一个 Gin 中间件，用于验证 JWT 并把用户标识放入上下文。
// jwtSecret: 用于验证签名的密钥，必须提供。
//
// 除了标准的 "Authorization: Bearer <token>" 头之外，还接受
// access_token 查询参数：浏览器的 WebSocket API 无法自定义请求头。
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				logrus.Warn("Auth middleware: missing access token")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: malformed token format")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// user_id 是认证服务写入的不透明字符串标识
		userIDClaim, ok := claims["user_id"]
		if !ok {
			logrus.Error("Auth middleware: 'user_id' claim missing in token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token processing error: missing user_id"})
			c.Abort()
			return
		}
		userID, ok := userIDClaim.(string)
		if !ok || userID == "" {
			logrus.Errorf("Auth middleware: 'user_id' claim is not a non-empty string: %v", userIDClaim)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token processing error: invalid user_id"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		logrus.WithField("user_id", userID).Debug("Auth middleware: user authenticated via JWT")
		c.Next()
	}
}

// extractToken 从请求头或查询参数中提取 Token
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	// WebSocket 握手的降级路径
	if token := c.Query("access_token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// validateToken 解析并验证 JWT token 字符串
func validateToken(tokenStr string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}
