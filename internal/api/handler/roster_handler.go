package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// RosterHandler 名册模块 HTTP 处理器（仅教师）
type RosterHandler struct {
	rosterSvc service.RosterService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(rosterSvc service.RosterService) *RosterHandler {
	return &RosterHandler{rosterSvc: rosterSvc}
}

// Students 名册列表，支持按姓名子串过滤
// GET /api/v1/groups/:id/students?q=
func (h *RosterHandler) Students(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.RosterFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.rosterSvc.Students(c.Request.Context(), caller, c.Param("id"), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// AddStudent 按用户名添加学生（账户必须已注册）
// POST /api/v1/groups/:id/students
func (h *RosterHandler) AddStudent(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.rosterSvc.AddStudent(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, g)
}

// UpdateStudent 修改学生姓名、备注或电话
// PUT /api/v1/groups/:id/students/:sid
func (h *RosterHandler) UpdateStudent(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.rosterSvc.UpdateStudent(c.Request.Context(), caller, c.Param("id"), c.Param("sid"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// RemoveStudent 移出学生并清除其所有成绩
// DELETE /api/v1/groups/:id/students/:sid?expected_version=
func (h *RosterHandler) RemoveStudent(c *gin.Context) {
	h.toggle(c, h.rosterSvc.RemoveStudent)
}

// TogglePaid 切换缴费状态
// POST /api/v1/groups/:id/students/:sid/paid?expected_version=
func (h *RosterHandler) TogglePaid(c *gin.Context) {
	h.toggle(c, h.rosterSvc.TogglePaid)
}

// ToggleStar 切换星标
// POST /api/v1/groups/:id/students/:sid/star?expected_version=
func (h *RosterHandler) ToggleStar(c *gin.Context) {
	h.toggle(c, h.rosterSvc.ToggleStar)
}

type studentOp func(ctx context.Context, caller *service.Caller, groupID, studentID string, expected *int) (*model.Group, error)

func (h *RosterHandler) toggle(c *gin.Context, op studentOp) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	expected, ok := expectedVersion(c)
	if !ok {
		return
	}

	g, err := op(c.Request.Context(), caller, c.Param("id"), c.Param("sid"), expected)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// History 学生考试历史
// GET /api/v1/groups/:id/students/:sid/history
func (h *RosterHandler) History(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.rosterSvc.History(c.Request.Context(), caller, c.Param("id"), c.Param("sid"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// Attendance 学生出勤统计
// GET /api/v1/groups/:id/students/:sid/attendance
func (h *RosterHandler) Attendance(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	stats, err := h.rosterSvc.Attendance(c.Request.Context(), caller, c.Param("id"), c.Param("sid"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, stats)
}
