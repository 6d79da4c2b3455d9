package util

import (
	"errors"
	"learning_progress/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

// HandleServiceError 把服务层的哨兵错误映射为 HTTP 状态码
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(c)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoRank):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrNotTaskOwner):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrTaskNotCompleted), errors.Is(err, ErrRewardAlreadyClaimed):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTransaction):
		logger.Log.Error("quiz transaction failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, ErrTransaction.Error())
	default:
		logger.Log.Error("Internal server error", zap.Error(err))
		InternalServerError(c)
	}
}
