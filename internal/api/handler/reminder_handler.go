package handler

import (
	"github.com/gin-gonic/gin"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// ReminderHandler 上课提醒与通知 HTTP 处理器
type ReminderHandler struct {
	reminderSvc service.ReminderService
}

// NewReminderHandler 创建 ReminderHandler
func NewReminderHandler(reminderSvc service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc}
}

// Register 注册提醒集合（整体替换）
// POST /api/v1/reminders
func (h *ReminderHandler) Register(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ScheduleNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.reminderSvc.Register(c.Request.Context(), caller, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}

// Notifications 通知记录（分页，新的在前）
// GET /api/v1/notifications
func (h *ReminderHandler) Notifications(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.reminderSvc.Notifications(c.Request.Context(), caller, &page)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// MarkRead 标记通知已读
// PUT /api/v1/notifications/:id/read
func (h *ReminderHandler) MarkRead(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.reminderSvc.MarkRead(c.Request.Context(), caller, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}
