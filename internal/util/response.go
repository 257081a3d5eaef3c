package util

import (
	"errors"
	"net/http"
	"study_buddy_backend/pkg/logger"

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

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
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

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.String("path", c.FullPath()), zap.Error(err))
	InternalServerError(c)
}

// RespondError 按错误类型映射状态码
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrUserNotFound):
		Error(c, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrFlashcardNotFound):
		Error(c, http.StatusNotFound, "Flashcard not found")
	case errors.Is(err, ErrSessionAlreadyEnded):
		Error(c, http.StatusConflict, "Study session already ended")
	case errors.Is(err, ErrStorageConflict), errors.Is(err, ErrAchievementExists):
		Error(c, http.StatusConflict, "Conflict, please retry")
	case errors.Is(err, ErrStorageUnavailable):
		logger.Log.Warn("Storage unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		LogInternalError(c, err)
	}
}
