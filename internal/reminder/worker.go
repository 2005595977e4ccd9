// Package reminder 上课提醒后台任务：每分钟检查一次已注册的课时，
// 在开课前 N 分钟的一分钟窗口内投递提醒。
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/model"
)

// 提醒文案
const (
	Title        = "تذكير بموعد المحاضرة"
	bodyTemplate = "تبدأ محاضرة %s خلال %d دقيقة"
)

// window 检查间隔，同时是触发窗口宽度
const window = time.Minute

// Body 提醒正文
func Body(groupName string, minutesBefore int) string {
	return fmt.Sprintf(bodyTemplate, groupName, minutesBefore)
}

// Schedule 一条需要提醒的课时
type Schedule struct {
	Day       model.DayOfWeek `json:"day"`
	Time      string          `json:"time"`
	GroupName string          `json:"group_name"`
}

// Sink 提醒投递方
type Sink interface {
	Deliver(ctx context.Context, accountID string, s Schedule, minutesBefore int) error
}

type registration struct {
	schedules     []Schedule
	minutesBefore int
}

// Worker 提醒后台任务
type Worker struct {
	mu    sync.Mutex
	regs  map[string]registration
	fired map[string]time.Time // 已投递的 (账户, 课时, 开课时刻)，防止重复提醒

	cfg    config.ReminderConfig
	loc    *time.Location
	sink   Sink
	cron   *cron.Cron
	now    func() time.Time
	logger *zap.Logger
}

// NewWorker 创建提醒任务；时区无效时回退到 UTC
func NewWorker(cfg *config.ReminderConfig, sink Sink, logger *zap.Logger) *Worker {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		logger.Warn("提醒时区无效，使用 UTC", zap.String("timezone", cfg.Timezone))
		loc = time.UTC
	}
	return &Worker{
		regs:   make(map[string]registration),
		fired:  make(map[string]time.Time),
		cfg:    *cfg,
		loc:    loc,
		sink:   sink,
		cron:   cron.New(cron.WithLocation(loc)),
		now:    time.Now,
		logger: logger,
	}
}

// DefaultMinutesBefore 配置的默认提前分钟数
func (w *Worker) DefaultMinutesBefore() int { return w.cfg.MinutesBefore }

// Register 整体替换账户的提醒集合，并立即检查一次
func (w *Worker) Register(ctx context.Context, accountID string, schedules []Schedule, minutesBefore int) {
	w.mu.Lock()
	w.regs[accountID] = registration{
		schedules:     append([]Schedule(nil), schedules...),
		minutesBefore: minutesBefore,
	}
	w.mu.Unlock()

	w.logger.Info("提醒已注册",
		zap.String("account_id", accountID),
		zap.Int("schedules", len(schedules)),
		zap.Int("minutes_before", minutesBefore),
	)
	w.checkAccount(ctx, accountID)
}

// Unregister 移除账户的提醒
func (w *Worker) Unregister(accountID string) {
	w.mu.Lock()
	delete(w.regs, accountID)
	w.mu.Unlock()
}

// Start 按配置的 cron 表达式启动定时检查
func (w *Worker) Start() error {
	spec := w.cfg.Spec
	if spec == "" {
		spec = "@every 1m"
	}
	if _, err := w.cron.AddFunc(spec, func() { w.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("注册提醒任务失败: %w", err)
	}
	w.cron.Start()
	w.logger.Info("提醒任务已启动", zap.String("spec", spec), zap.String("timezone", w.loc.String()))
	return nil
}

// Stop 停止定时任务并等待正在执行的检查结束
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

// Tick 对所有账户执行一次检查
func (w *Worker) Tick(ctx context.Context) {
	w.mu.Lock()
	ids := make([]string, 0, len(w.regs))
	for id := range w.regs {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	for _, id := range ids {
		w.checkAccount(ctx, id)
	}
	w.gc()
}

func (w *Worker) checkAccount(ctx context.Context, accountID string) {
	w.mu.Lock()
	reg, ok := w.regs[accountID]
	w.mu.Unlock()
	if !ok {
		return
	}

	now := w.now().In(w.loc)
	for _, s := range reg.schedules {
		start, ok := NextOccurrence(now, s.Day, s.Time)
		if !ok || !Due(now, start, reg.minutesBefore) {
			continue
		}
		key := accountID + "|" + string(s.Day) + "|" + s.Time + "|" + s.GroupName
		if !w.markFired(key, start) {
			continue
		}
		if err := w.sink.Deliver(ctx, accountID, s, reg.minutesBefore); err != nil {
			w.logger.Error("投递提醒失败",
				zap.String("account_id", accountID),
				zap.String("group", s.GroupName),
				zap.Error(err),
			)
		}
	}
}

func (w *Worker) markFired(key string, start time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if at, ok := w.fired[key]; ok && at.Equal(start) {
		return false
	}
	w.fired[key] = start
	return true
}

// gc 清理已开课的防重记录
func (w *Worker) gc() {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, at := range w.fired {
		if at.Before(now) {
			delete(w.fired, k)
		}
	}
}

// NextOccurrence 计算 now 之后（含当下）该星期与时间的下一次开课时刻
// 当天时间已过则顺延一周
func NextOccurrence(now time.Time, day model.DayOfWeek, hhmm string) (time.Time, bool) {
	wd := day.Weekday()
	if wd < 0 {
		return time.Time{}, false
	}
	h, m, ok := parseHHMM(hhmm)
	if !ok {
		return time.Time{}, false
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	diff := wd - int(now.Weekday())
	if diff < 0 || (diff == 0 && target.Before(now)) {
		diff += 7
	}
	return target.AddDate(0, 0, diff), true
}

// Due 触发条件：alert-60s < 距开课时间 <= alert
func Due(now, start time.Time, minutesBefore int) bool {
	until := start.Sub(now)
	alert := time.Duration(minutesBefore) * time.Minute
	return until > alert-window && until <= alert
}

func parseHHMM(s string) (int, int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
