package handler

import (
	"context"

	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	Session  *SessionHandler
	Group    *GroupHandler
	Roster   *RosterHandler
	Exam     *ExamHandler
	Results  *ResultsHandler
	Planner  *PlannerHandler
	Export   *ExportHandler
	Reminder *ReminderHandler
	Feed     *FeedHandler
}

// NewHandler 创建 Handler 聚合
// shutdown 结束时主动关闭所有 WebSocket 推送连接
func NewHandler(shutdown context.Context, cfg *config.Config, svc *service.Service, hub FeedHub, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		Session:  NewSessionHandler(svc.Session),
		Group:    NewGroupHandler(svc.Group),
		Roster:   NewRosterHandler(svc.Roster),
		Exam:     NewExamHandler(svc.Exam),
		Results:  NewResultsHandler(svc.Results),
		Planner:  NewPlannerHandler(svc.Planner),
		Export:   NewExportHandler(svc.Export),
		Reminder: NewReminderHandler(svc.Reminder),
		Feed:     NewFeedHandler(shutdown, hub, cfg.Server.CORS.AllowOrigins, logger),
	}
}
