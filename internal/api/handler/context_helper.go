package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"manasa/backend/internal/api/middleware"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// DeviceIDHeader 个人计划表所属设备
const DeviceIDHeader = "X-Device-ID"

const deviceIDMaxLen = 128

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "يرجى تسجيل الدخول أولاً")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "يرجى تسجيل الدخول أولاً")
		return "", false
	}
	return s, true
}

// MustGetCaller 组装当前请求的调用方
func MustGetCaller(c *gin.Context) (*service.Caller, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return nil, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return nil, false
	}

	caller := &service.Caller{
		AccountID: userID,
		Username:  c.GetString(middleware.CtxUsername),
		Role:      role,
		SessionID: c.GetString(middleware.CtxJTI),
	}
	if v, ok := c.Get(middleware.CtxTokenExp); ok {
		caller.ExpiresAt, _ = v.(time.Time)
	}
	if dev := strings.TrimSpace(c.GetHeader(DeviceIDHeader)); len(dev) <= deviceIDMaxLen {
		caller.DeviceID = dev
	}
	return caller, true
}
