package handler

import (
	"github.com/gin-gonic/gin"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// PlannerHandler 个人计划表 HTTP 处理器，数据按 X-Device-ID + 用户名隔离
type PlannerHandler struct {
	plannerSvc service.PlannerService
}

// NewPlannerHandler 创建 PlannerHandler
func NewPlannerHandler(plannerSvc service.PlannerService) *PlannerHandler {
	return &PlannerHandler{plannerSvc: plannerSvc}
}

// ── 个人课程 ──

// Lectures GET /api/v1/planner/lectures
func (h *PlannerHandler) Lectures(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.plannerSvc.Lectures(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// AddLecture POST /api/v1/planner/lectures
func (h *PlannerHandler) AddLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.LectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	l, err := h.plannerSvc.AddLecture(c.Request.Context(), caller, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, l)
}

// UpdateLecture PUT /api/v1/planner/lectures/:id
func (h *PlannerHandler) UpdateLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.LectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	l, err := h.plannerSvc.UpdateLecture(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, l)
}

// TogglePostponed POST /api/v1/planner/lectures/:id/postpone
func (h *PlannerHandler) TogglePostponed(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	l, err := h.plannerSvc.TogglePostponed(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, l)
}

// DeleteLecture DELETE /api/v1/planner/lectures/:id
func (h *PlannerHandler) DeleteLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.plannerSvc.DeleteLecture(c.Request.Context(), caller, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportLectures 从 ICS 文件导入个人课程（multipart 字段 file）
// POST /api/v1/planner/lectures/import
func (h *PlannerHandler) ImportLectures(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		bindFailed(c, err)
		return
	}
	if fh.Size <= 0 {
		handleError(c, service.ErrICSInvalid)
		return
	}
	file, err := fh.Open()
	if err != nil {
		handleError(c, service.ErrICSInvalid)
		return
	}
	defer file.Close()

	result, err := h.plannerSvc.ImportLectures(c.Request.Context(), caller, file, fh.Size)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}

// ── 作业 ──

// Homework GET /api/v1/planner/homework
func (h *PlannerHandler) Homework(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.plannerSvc.Homework(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// AddHomework POST /api/v1/planner/homework
func (h *PlannerHandler) AddHomework(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.HomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	hw, err := h.plannerSvc.AddHomework(c.Request.Context(), caller, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, hw)
}

// ToggleHomework POST /api/v1/planner/homework/:id/toggle
func (h *PlannerHandler) ToggleHomework(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	hw, err := h.plannerSvc.ToggleHomework(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, hw)
}

// DeleteHomework DELETE /api/v1/planner/homework/:id
func (h *PlannerHandler) DeleteHomework(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.plannerSvc.DeleteHomework(c.Request.Context(), caller, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, nil)
}
