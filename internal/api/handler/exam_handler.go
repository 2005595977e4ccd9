package handler

import (
	"github.com/gin-gonic/gin"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// ExamHandler 考试与评分 HTTP 处理器（仅教师）
type ExamHandler struct {
	examSvc service.ExamService
}

// NewExamHandler 创建 ExamHandler
func NewExamHandler(examSvc service.ExamService) *ExamHandler {
	return &ExamHandler{examSvc: examSvc}
}

// AddExam 新建考试，满分超出 [0,100] 时截断
// POST /api/v1/groups/:id/exams
func (h *ExamHandler) AddExam(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AddExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.examSvc.AddExam(c.Request.Context(), caller, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, g)
}

// DeleteExam 删除考试及其成绩
// DELETE /api/v1/groups/:id/exams/:eid?expected_version=
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	expected, ok := expectedVersion(c)
	if !ok {
		return
	}

	g, err := h.examSvc.DeleteExam(c.Request.Context(), caller, c.Param("id"), c.Param("eid"), expected)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}

// RecordGrade 录入出勤状态与分数
// PUT /api/v1/groups/:id/exams/:eid/results/:sid
func (h *ExamHandler) RecordGrade(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	g, err := h.examSvc.RecordGrade(c.Request.Context(), caller, c.Param("id"), c.Param("eid"), c.Param("sid"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, g)
}
