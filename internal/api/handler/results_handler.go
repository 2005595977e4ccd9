package handler

import (
	"github.com/gin-gonic/gin"

	"manasa/backend/internal/service"
	"manasa/backend/pkg/response"
)

// ResultsHandler 成绩与周课表 HTTP 处理器
type ResultsHandler struct {
	resultsSvc service.ResultsService
}

// NewResultsHandler 创建 ResultsHandler
func NewResultsHandler(resultsSvc service.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsSvc: resultsSvc}
}

// MyResults 学生跨小组成绩
// GET /api/v1/results/me
func (h *ResultsHandler) MyResults(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.resultsSvc.MyResults(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, list)
}

// Weekly 周课表（小组课时，学生另合并本设备的个人课程）
// GET /api/v1/schedule/weekly
func (h *ResultsHandler) Weekly(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	week, err := h.resultsSvc.Weekly(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, week)
}
