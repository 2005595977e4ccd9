package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"manasa/backend/internal/api/middleware"
	"manasa/backend/internal/dto"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/service"
	"manasa/backend/internal/session"
	"manasa/backend/pkg/response"
)

// errorMapping 业务错误 → HTTP 状态与业务码；响应消息直接使用错误文本（阿拉伯语）
type errorMapping struct {
	err    error
	status int
	code   int
}

// 业务码分段：10xxx 通用，11xxx 认证，12xxx 小组，13xxx 名册，
// 14xxx 考试，15xxx 计划表与提醒，16xxx 会话
var errorTable = []errorMapping{
	// ── 认证 ──
	{identity.ErrInvalidCredential, http.StatusUnauthorized, 11001},
	{identity.ErrHandleTaken, http.StatusConflict, 11002},
	{identity.ErrInvalidHandle, http.StatusBadRequest, 11003},
	{identity.ErrWeakPassword, http.StatusBadRequest, 11004},
	{identity.ErrMisconfigured, http.StatusInternalServerError, 11005},
	{service.ErrAccountMissing, http.StatusUnauthorized, 11006},
	{service.ErrNameRequired, http.StatusBadRequest, 11007},
	{service.ErrMissingFields, http.StatusBadRequest, 11008},
	{service.ErrNothingToUpdate, http.StatusBadRequest, 11009},

	// ── 小组 ──
	{service.ErrGroupNotFound, http.StatusNotFound, 12001},
	{service.ErrGroupForbidden, http.StatusForbidden, 12002},
	{service.ErrGroupNameRequired, http.StatusBadRequest, 12003},
	{service.ErrInvalidDay, http.StatusBadRequest, 12004},
	{service.ErrInvalidTime, http.StatusBadRequest, 12005},
	{service.ErrScheduleEntryNotFound, http.StatusNotFound, 12006},
	{mutation.ErrConflict, http.StatusConflict, 12009},

	// ── 名册 ──
	{service.ErrStudentNameRequired, http.StatusBadRequest, 13001},
	{service.ErrStudentHandleInvalid, http.StatusBadRequest, 13002},
	{service.ErrStudentNotRegistered, http.StatusNotFound, 13003},
	{service.ErrStudentAlreadyInGroup, http.StatusConflict, 13004},
	{service.ErrStudentNotFound, http.StatusNotFound, 13005},

	// ── 考试 ──
	{service.ErrExamTitleRequired, http.StatusBadRequest, 14001},
	{service.ErrExamNotFound, http.StatusNotFound, 14002},
	{service.ErrInvalidStatus, http.StatusBadRequest, 14003},

	// ── 计划表与提醒 ──
	{planner.ErrDeviceRequired, http.StatusBadRequest, 15001},
	{planner.ErrItemNotFound, http.StatusNotFound, 15002},
	{service.ErrICSTooLarge, http.StatusRequestEntityTooLarge, 15003},
	{service.ErrICSInvalid, http.StatusBadRequest, 15004},
	{service.ErrRemindersDisabled, http.StatusServiceUnavailable, 15005},
	{service.ErrNotificationNotFound, http.StatusNotFound, 15006},

	// ── 会话 ──
	{session.ErrSessionNotFound, http.StatusUnauthorized, 16001},
	{session.ErrViewForbidden, http.StatusForbidden, 16002},
	{session.ErrGroupRequired, http.StatusBadRequest, 16003},
	{session.ErrUnknownView, http.StatusBadRequest, 16004},
	{session.ErrInvalidTransition, http.StatusConflict, 16005},
	{session.ErrUnknownRole, http.StatusBadRequest, 16006},
}

// handleError 将业务错误写为统一响应；未知错误一律 500
func handleError(c *gin.Context, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, m.err.Error())
			return
		}
	}
	_ = c.Error(err)
	response.InternalError(c)
}

// bindFailed 参数绑定/校验失败，details 给出 "字段:规则" 列表
func bindFailed(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "حجم الطلب كبير جداً")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "البيانات المدخلة غير صحيحة", dto.ValidationDetails(err))
}
