package handler

import (
	"github.com/gin-gonic/gin"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// GroupHandler 小组模块 HTTP 处理器
// 所有变更接口都返回完整小组文档（含新 version），客户端据此更新本地副本
type GroupHandler struct {
	groupSvc service.GroupService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

// expectedVersion 无请求体的变更从查询参数读取期望版本
func expectedVersion(c *gin.Context) (*int, bool) {
	var q dto.VersionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return nil, false
	}
	return q.ExpectedVersion, true
}

// List 教师：自己的小组；学生：已加入的小组
// GET /api/v1/groups
func (h *GroupHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.groupSvc.List(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// Get 小组详情
// GET /api/v1/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	g, err := h.groupSvc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// Create 创建小组
// POST /api/v1/groups
func (h *GroupHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.groupSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, g)
}

// Update 修改小组名称、地点或电话
// PUT /api/v1/groups/:id
func (h *GroupHandler) Update(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.groupSvc.Update(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// Delete 删除小组
// DELETE /api/v1/groups/:id?expected_version=
func (h *GroupHandler) Delete(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	expected, ok := expectedVersion(c)
	if !ok {
		return
	}

	if err := h.groupSvc.Delete(c.Request.Context(), caller, c.Param("id"), expected); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}

// AddScheduleEntry 添加固定课时
// POST /api/v1/groups/:id/schedule
func (h *GroupHandler) AddScheduleEntry(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AddScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.groupSvc.AddScheduleEntry(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// RemoveScheduleEntry 删除固定课时
// DELETE /api/v1/groups/:id/schedule/:entryId?expected_version=
func (h *GroupHandler) RemoveScheduleEntry(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	expected, ok := expectedVersion(c)
	if !ok {
		return
	}

	g, err := h.groupSvc.RemoveScheduleEntry(c.Request.Context(), caller, c.Param("id"), c.Param("entryId"), expected)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}
