// Package planner 学生个人课程与作业（按设备隔离，不写入小组文档）。
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"manasa/backend/internal/model"
	"manasa/backend/internal/mutation"
)

var (
	ErrDeviceRequired = errors.New("معرّف الجهاز مطلوب")
	ErrItemNotFound   = errors.New("العنصر غير موجود")
)

const (
	kindLectures = "lectures"
	kindHomework = "homework"
)

// Scope 存储作用域：设备 + 用户名
type Scope struct {
	DeviceID string
	Handle   string
}

func (s Scope) key(kind string) (string, error) {
	device := strings.TrimSpace(s.DeviceID)
	if device == "" {
		return "", ErrDeviceRequired
	}
	return fmt.Sprintf("planner:%s:%s:%s", device, strings.ToLower(s.Handle), kind), nil
}

// Planner 个人计划表
type Planner struct {
	store  Store
	locks  *mutation.KeyedMutex
	now    func() time.Time
	logger *zap.Logger
}

// New 创建计划表
func New(store Store, logger *zap.Logger) *Planner {
	return &Planner{
		store:  store,
		locks:  mutation.NewKeyedMutex(),
		now:    time.Now,
		logger: logger,
	}
}

// ────── 通用读写 ──────

func load[T any](ctx context.Context, p *Planner, key string) ([]T, error) {
	raw, err := p.store.Load(ctx, key)
	if err != nil {
		p.logger.Error("读取计划表失败", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		// 损坏的数据按空处理，与设备本地存储的容错一致
		p.logger.Warn("计划表数据损坏，已重置", zap.String("key", key), zap.Error(err))
		return []T{}, nil
	}
	return items, nil
}

// modify 在键锁内读-改-写
func modify[T any](ctx context.Context, p *Planner, scope Scope, kind string, fn func([]T) ([]T, error)) ([]T, error) {
	key, err := scope.key(kind)
	if err != nil {
		return nil, err
	}
	unlock, err := p.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := load[T](ctx, p, key)
	if err != nil {
		return nil, err
	}
	items, err = fn(items)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(ctx, key, raw); err != nil {
		p.logger.Error("保存计划表失败", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return items, nil
}

// ────── 个人课程 ──────

// Lectures 列出个人课程
func (p *Planner) Lectures(ctx context.Context, scope Scope) ([]model.StudentLecture, error) {
	key, err := scope.key(kindLectures)
	if err != nil {
		return nil, err
	}
	return load[model.StudentLecture](ctx, p, key)
}

// AddLecture 新增个人课程
func (p *Planner) AddLecture(ctx context.Context, scope Scope, l model.StudentLecture) (*model.StudentLecture, error) {
	l.ID = uuid.New().String()
	if l.Type == "" {
		l.Type = model.LecturePhysical
	}
	_, err := modify(ctx, p, scope, kindLectures, func(items []model.StudentLecture) ([]model.StudentLecture, error) {
		return append(items, l), nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLecture 整体替换课程字段，保留 ID 与延期标记
func (p *Planner) UpdateLecture(ctx context.Context, scope Scope, id string, l model.StudentLecture) (*model.StudentLecture, error) {
	var out model.StudentLecture
	_, err := modify(ctx, p, scope, kindLectures, func(items []model.StudentLecture) ([]model.StudentLecture, error) {
		for i := range items {
			if items[i].ID == id {
				l.ID = id
				l.Postponed = items[i].Postponed
				if l.Type == "" {
					l.Type = items[i].Type
				}
				items[i] = l
				out = l
				return items, nil
			}
		}
		return nil, ErrItemNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TogglePostponed 切换延期标记
func (p *Planner) TogglePostponed(ctx context.Context, scope Scope, id string) (*model.StudentLecture, error) {
	var out model.StudentLecture
	_, err := modify(ctx, p, scope, kindLectures, func(items []model.StudentLecture) ([]model.StudentLecture, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Postponed = !items[i].Postponed
				out = items[i]
				return items, nil
			}
		}
		return nil, ErrItemNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLecture 删除个人课程
func (p *Planner) DeleteLecture(ctx context.Context, scope Scope, id string) error {
	_, err := modify(ctx, p, scope, kindLectures, func(items []model.StudentLecture) ([]model.StudentLecture, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrItemNotFound
	})
	return err
}

// MergeLectures 按 科目+星期+时间 去重合并，返回新增数量
func (p *Planner) MergeLectures(ctx context.Context, scope Scope, incoming []model.StudentLecture) (int, error) {
	added := 0
	_, err := modify(ctx, p, scope, kindLectures, func(items []model.StudentLecture) ([]model.StudentLecture, error) {
		seen := make(map[string]bool, len(items))
		for _, l := range items {
			seen[lectureKey(l)] = true
		}
		for _, l := range incoming {
			k := lectureKey(l)
			if seen[k] {
				continue
			}
			seen[k] = true
			l.ID = uuid.New().String()
			items = append(items, l)
			added++
		}
		return items, nil
	})
	return added, err
}

func lectureKey(l model.StudentLecture) string {
	return strings.ToLower(strings.TrimSpace(l.Subject)) + "|" + string(l.Day) + "|" + l.Time
}

// ────── 作业 ──────

// Homework 列出作业
func (p *Planner) Homework(ctx context.Context, scope Scope) ([]model.StudentHomework, error) {
	key, err := scope.key(kindHomework)
	if err != nil {
		return nil, err
	}
	return load[model.StudentHomework](ctx, p, key)
}

// AddHomework 新增作业（新作业排在最前）
func (p *Planner) AddHomework(ctx context.Context, scope Scope, subject, task string) (*model.StudentHomework, error) {
	hw := model.StudentHomework{
		ID:        uuid.New().String(),
		Subject:   subject,
		Task:      task,
		CreatedAt: p.now().UTC().Format(time.RFC3339),
	}
	_, err := modify(ctx, p, scope, kindHomework, func(items []model.StudentHomework) ([]model.StudentHomework, error) {
		return append([]model.StudentHomework{hw}, items...), nil
	})
	if err != nil {
		return nil, err
	}
	return &hw, nil
}

// ToggleHomework 切换完成状态
func (p *Planner) ToggleHomework(ctx context.Context, scope Scope, id string) (*model.StudentHomework, error) {
	var out model.StudentHomework
	_, err := modify(ctx, p, scope, kindHomework, func(items []model.StudentHomework) ([]model.StudentHomework, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Completed = !items[i].Completed
				out = items[i]
				return items, nil
			}
		}
		return nil, ErrItemNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteHomework 删除作业
func (p *Planner) DeleteHomework(ctx context.Context, scope Scope, id string) error {
	_, err := modify(ctx, p, scope, kindHomework, func(items []model.StudentHomework) ([]model.StudentHomework, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrItemNotFound
	})
	return err
}
