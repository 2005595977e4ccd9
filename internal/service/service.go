package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/model"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/session"
	"manasa/backend/pkg/jwt"
	"manasa/backend/pkg/redis"
)

// Caller 已认证请求的调用方（由中间件从 Token 与会话中提取）
type Caller struct {
	AccountID string
	Username  string
	Role      string
	SessionID string
	ExpiresAt time.Time
	DeviceID  string // X-Device-ID，仅个人计划表使用
}

// IsTeacher 是否教师
func (c *Caller) IsTeacher() bool { return c.Role == model.RoleTeacher }

// SessionCloser 会话结束时断开其推送连接（feed.Hub）
type SessionCloser interface {
	CloseSession(ctx context.Context, sessionID string)
}

// Deps Service 层依赖
type Deps struct {
	Config      *config.Config
	Repo        *repository.Repository
	Gate        identity.Gate
	JWT         *jwt.Manager
	Redis       *redis.Client // 可为 nil
	Sessions    *session.Manager
	Feed        SessionCloser // 可为 nil
	Coordinator *mutation.Coordinator
	Planner     *planner.Planner
	Reminders   *reminder.Worker
	Logger      *zap.Logger
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Session  SessionService
	Group    GroupService
	Roster   RosterService
	Exam     ExamService
	Results  ResultsService
	Planner  PlannerService
	Export   ExportService
	Reminder ReminderService
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	w := newGroupWriter(d.Repo, d.Coordinator, d.Logger)
	loc := Location(d.Config.Reminder.Timezone)
	return &Service{
		Auth:     NewAuthService(&d.Config.Auth, d.Repo, d.Gate, d.JWT, d.Redis, d.Sessions, d.Feed, d.Logger),
		Session:  NewSessionService(d.Repo, d.Sessions, d.Logger),
		Group:    NewGroupService(d.Repo, w, d.Sessions, d.Logger),
		Roster:   NewRosterService(&d.Config.Auth, d.Repo, w, d.Logger),
		Exam:     NewExamService(w, d.Logger),
		Results:  NewResultsService(d.Repo, d.Planner, d.Logger),
		Planner:  NewPlannerService(d.Planner, loc, d.Logger),
		Export:   NewExportService(d.Repo, d.Planner, w, loc, d.Logger),
		Reminder: NewReminderService(d.Repo, d.Reminders, d.Logger),
	}
}

// Location 课表所用时区，无效时回退到 UTC
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
