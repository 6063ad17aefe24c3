// Package token 提供了用于签发和验证会话令牌 (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionManager 负责会话令牌的签发和验证。
type SessionManager struct {
	secretKey []byte        // secretKey 用于签名和验证 token 的密钥
	ttl       time.Duration // ttl 定义了会话令牌的有效期
}

// SessionClaims 定义了会话令牌中携带的数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// NewSessionManager 创建一个新的 SessionManager 实例。
// secret: 用于签名的密钥字符串。
// expireHours: 会话令牌的过期时间（小时）。
func NewSessionManager(secret string, expireHours int) *SessionManager {
	return &SessionManager{
		secretKey: []byte(secret),
		ttl:       time.Hour * time.Duration(expireHours),
	}
}

// Issue 为给定的会话 ID 签发令牌，返回令牌及其过期时间。
func (m *SessionManager) Issue(sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	// 使用 HS256 签名方法创建新的 token 对象
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify 验证给定的 token 字符串。
// 签名不匹配、已过期或缺少会话 ID 时返回错误。
func (m *SessionManager) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid && claims.SessionID != "" {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
