package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
)

type recordingNotifier struct {
	accounts []string
}

func (n *recordingNotifier) Notify(_ context.Context, accountID string, _ *model.Notification) {
	n.accounts = append(n.accounts, accountID)
}

func TestReminderService_Register(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	ctx := context.Background()

	resp, err := env.svc.Reminder.Register(ctx, teacher, &dto.ScheduleNotificationsRequest{
		Type: dto.ScheduleNotificationsType,
		Schedules: []dto.ReminderSchedule{
			{Day: string(model.Sunday), Time: "16:00", GroupName: "G1"},
			{Day: string(model.Monday), Time: "18:30", GroupName: "G2"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Registered != 2 || resp.MinutesBefore != 15 {
		t.Errorf("缺省提前分钟数应取配置值 15，实际 %+v", resp)
	}

	_, err = env.svc.Reminder.Register(ctx, teacher, &dto.ScheduleNotificationsRequest{
		Type:      dto.ScheduleNotificationsType,
		Schedules: []dto.ReminderSchedule{{Day: "Sunday", Time: "16:00", GroupName: "G1"}},
	})
	if !errors.Is(err, ErrInvalidDay) {
		t.Errorf("期望 ErrInvalidDay，实际 %v", err)
	}
}

func TestReminderService_Disabled(t *testing.T) {
	svc := NewReminderService(&repository.Repository{}, nil, zap.NewNop())
	_, err := svc.Register(context.Background(), &Caller{AccountID: "u1"}, &dto.ScheduleNotificationsRequest{Type: dto.ScheduleNotificationsType})
	if !errors.Is(err, ErrRemindersDisabled) {
		t.Errorf("期望 ErrRemindersDisabled，实际 %v", err)
	}
}

func TestReminderDelivery_PersistsAndPushes(t *testing.T) {
	notes := &mockNotificationRepo{}
	notifier := &recordingNotifier{}
	sink := NewReminderDelivery(&repository.Repository{Notification: notes}, notifier, zap.NewNop())

	err := sink.Deliver(context.Background(), "u1", reminder.Schedule{Day: model.Sunday, Time: "16:00", GroupName: "G1"}, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes.items) != 1 {
		t.Fatalf("期望落库 1 条通知，实际 %d", len(notes.items))
	}
	n := notes.items[0]
	if n.Title != "تذكير بموعد المحاضرة" || n.Content != "تبدأ محاضرة G1 خلال 15 دقيقة" || n.Type != model.NotificationLectureReminder {
		t.Errorf("通知内容不符: %+v", n)
	}
	if len(notifier.accounts) != 1 || notifier.accounts[0] != "u1" {
		t.Errorf("期望推送给 u1，实际 %v", notifier.accounts)
	}
}

func TestReminderService_Notifications(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.signup(t, "teacher", "Ustadh", "teach1")
	ctx := context.Background()
	sink := NewReminderDelivery(&repository.Repository{Notification: env.notes}, nil, zap.NewNop())
	for _, g := range []string{"G1", "G2", "G3"} {
		_ = sink.Deliver(ctx, teacher.AccountID, reminder.Schedule{Day: model.Sunday, Time: "16:00", GroupName: g}, 10)
	}

	list, total, err := env.svc.Reminder.Notifications(ctx, teacher, &dto.PaginationRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(list) != 2 {
		t.Errorf("分页不符: total=%d len=%d", total, len(list))
	}

	if err := env.svc.Reminder.MarkRead(ctx, teacher, list[0].NotificationID); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.Reminder.MarkRead(ctx, teacher, "missing"); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际 %v", err)
	}
}
