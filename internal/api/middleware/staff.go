package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// StaffTokenHeader 工作人员会话令牌头
	StaffTokenHeader = "X-Staff-Token"
	staffIDKey       = "staff_id"
	staffSubjectKey  = "staff_subject"
)

var (
	ErrInvalidStaffToken = errors.New("invalid staff token")
	ErrExpiredStaffToken = errors.New("staff token has expired")
)

// StaffClaims 工作人员令牌声明
type StaffClaims struct {
	StaffID int64 `json:"staff_id"`
	jwt.RegisteredClaims
}

// StaffTokens 工作人员会话令牌的签发与校验（HS256）
type StaffTokens struct {
	secret []byte
	issuer string
}

// NewStaffTokens 创建令牌管理器
func NewStaffTokens(secret, issuer string) *StaffTokens {
	return &StaffTokens{secret: []byte(secret), issuer: issuer}
}

// Enabled 是否配置了签名密钥
func (t *StaffTokens) Enabled() bool { return t != nil && len(t.secret) > 0 }

// Issue 签发令牌，供运维工具与测试使用
func (t *StaffTokens) Issue(staffID int64, ttl time.Duration, now time.Time) (string, error) {
	claims := StaffClaims{
		StaffID: staffID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(staffID, 10),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse 校验令牌并返回声明
func (t *StaffTokens) Parse(raw string) (*StaffClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &StaffClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredStaffToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidStaffToken, err)
	}
	claims, ok := token.Claims.(*StaffClaims)
	if !ok || !token.Valid || claims.StaffID <= 0 {
		return nil, ErrInvalidStaffToken
	}
	return claims, nil
}

// StaffSession 解析可选的工作人员令牌。
// 未携带令牌时放行（由业务层决定是否接受显式 staff_id），携带但无效时返回 401。
func StaffSession(tokens *StaffTokens, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(StaffTokenHeader)
		if raw == "" || !tokens.Enabled() {
			c.Next()
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			logger.Warn("staff token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()),
				zap.Error(err),
			)
			abortJSON(c, http.StatusUnauthorized, "工作人员令牌无效或已过期")
			return
		}
		c.Set(staffIDKey, claims.StaffID)
		c.Set(staffSubjectKey, claims.Subject)
		c.Next()
	}
}

// StaffFromContext 读取已认证的工作人员
func StaffFromContext(c *gin.Context) (int64, string, bool) {
	id := c.GetInt64(staffIDKey)
	if id <= 0 {
		return 0, "", false
	}
	return id, c.GetString(staffSubjectKey), true
}
