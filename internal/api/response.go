package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/swap-server/internal/api/middleware"
	"github.com/taoyao-code/swap-server/internal/apperr"
)

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int         `json:"code"`           // 0=成功, >0=HTTP 状态码
	Message   string      `json:"message"`        // 消息
	Data      interface{} `json:"data,omitempty"` // 业务数据
	RequestID string      `json:"request_id"`     // 请求追踪ID
	Timestamp int64       `json:"timestamp"`      // 时间戳
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, StandardResponse{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now().Unix(),
	})
}

func respondBadRequest(c *gin.Context, message string) {
	respondWithError(c, nil, apperr.Validation("BAD_REQUEST", "%s", message))
}

// respondWithError 按错误类别映射 HTTP 状态码，错误码放在 data.error_code
func respondWithError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusOf(apperr.KindOf(err))
	message := err.Error()
	if e, ok := apperr.As(err); ok {
		message = e.Message
	}
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(middleware.RequestIDKey)),
				zap.Error(err))
		}
		message = "服务器内部错误"
	}
	c.JSON(status, StandardResponse{
		Code:      status,
		Message:   message,
		Data:      map[string]interface{}{"error_code": apperr.CodeOf(err)},
		RequestID: c.GetString(middleware.RequestIDKey),
		Timestamp: time.Now().Unix(),
	})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateConflict:
		return http.StatusConflict
	case apperr.KindResourceExhausted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
