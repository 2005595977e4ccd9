package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
)

// ── 提醒模块业务错误 ──

var (
	ErrRemindersDisabled    = errors.New("التنبيهات غير مفعلة على الخادم")
	ErrNotificationNotFound = errors.New("الإشعار غير موجود")
)

// ReminderService 上课提醒与通知记录业务接口
type ReminderService interface {
	Register(ctx context.Context, caller *Caller, req *dto.ScheduleNotificationsRequest) (*dto.ScheduleNotificationsResponse, error)
	Notifications(ctx context.Context, caller *Caller, page *dto.PaginationRequest) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, caller *Caller, id string) error
}

type reminderService struct {
	repo   *repository.Repository
	worker *reminder.Worker
	logger *zap.Logger
}

// NewReminderService 创建 ReminderService 实例，worker 为 nil 表示提醒已关闭
func NewReminderService(repo *repository.Repository, worker *reminder.Worker, logger *zap.Logger) ReminderService {
	return &reminderService{repo: repo, worker: worker, logger: logger}
}

// Register 整体替换调用方的提醒集合；minutes_before 缺省取配置值
func (s *reminderService) Register(ctx context.Context, caller *Caller, req *dto.ScheduleNotificationsRequest) (*dto.ScheduleNotificationsResponse, error) {
	if s.worker == nil {
		return nil, ErrRemindersDisabled
	}
	minutes := s.worker.DefaultMinutesBefore()
	if req.MinutesBefore != nil {
		minutes = *req.MinutesBefore
	}

	schedules := make([]reminder.Schedule, 0, len(req.Schedules))
	for _, sc := range req.Schedules {
		day := model.DayOfWeek(sc.Day)
		if !day.Valid() {
			return nil, ErrInvalidDay
		}
		if !dto.IsHHMM(sc.Time) {
			return nil, ErrInvalidTime
		}
		schedules = append(schedules, reminder.Schedule{Day: day, Time: sc.Time, GroupName: sc.GroupName})
	}

	if len(schedules) == 0 {
		s.worker.Unregister(caller.AccountID)
	} else {
		s.worker.Register(ctx, caller.AccountID, schedules, minutes)
	}
	return &dto.ScheduleNotificationsResponse{Registered: len(schedules), MinutesBefore: minutes}, nil
}

func (s *reminderService) Notifications(ctx context.Context, caller *Caller, page *dto.PaginationRequest) ([]model.Notification, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, caller.AccountID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知失败", zap.String("user_id", caller.AccountID), zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

func (s *reminderService) MarkRead(ctx context.Context, caller *Caller, id string) error {
	if err := s.repo.Notification.MarkRead(ctx, caller.AccountID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 投递 ──────────────────────

// Notifier 在线推送（feed.Hub）
type Notifier interface {
	Notify(ctx context.Context, accountID string, n *model.Notification)
}

type reminderDelivery struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewReminderDelivery 提醒落库并推送到在线连接
func NewReminderDelivery(repo *repository.Repository, notifier Notifier, logger *zap.Logger) reminder.Sink {
	return &reminderDelivery{repo: repo, notifier: notifier, logger: logger}
}

func (d *reminderDelivery) Deliver(ctx context.Context, accountID string, sc reminder.Schedule, minutesBefore int) error {
	related := string(sc.Day) + " " + sc.Time
	n := &model.Notification{
		UserID:    accountID,
		Type:      model.NotificationLectureReminder,
		Title:     reminder.Title,
		Content:   reminder.Body(sc.GroupName, minutesBefore),
		RelatedID: &related,
	}
	if err := d.repo.Notification.Create(ctx, n); err != nil {
		return err
	}
	if d.notifier != nil {
		d.notifier.Notify(ctx, accountID, n)
	}
	d.logger.Info("上课提醒已投递",
		zap.String("user_id", accountID),
		zap.String("group", sc.GroupName),
	)
	return nil
}
