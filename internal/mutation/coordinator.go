// Package mutation 小组文档的读-改-写协调器。
//
// 同一小组上的变更意图在进程内串行执行；跨进程的并发写由
// version 比较并交换兜底，冲突以 ErrConflict 暴露给调用方重试。
package mutation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"manasa/backend/internal/model"
	pkgerrors "manasa/backend/pkg/errors"
)

// ErrConflict 期望版本与存储版本不一致，或写入时版本已被推进（可重试）
var ErrConflict = errors.New("تم تعديل المجموعة من جهة أخرى، يرجى التحديث والمحاولة ثانية")

// Store 协调器依赖的记录存储能力
type Store interface {
	GetByID(ctx context.Context, id string) (*model.Group, error)
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id string) error
}

// Publisher 变更通知；实现方不得阻塞
type Publisher interface {
	GroupChanged(ctx context.Context, before, after *model.Group)
}

// CommitTimeout 已提交的变更意图（排队、读取、写回）的最长执行时间
const CommitTimeout = 30 * time.Second

// Detach 返回不随 ctx 取消、仅受 CommitTimeout 约束的上下文。
// 客户端断开后，已提交的变更仍会排队并完成写入。
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), CommitTimeout)
}

// MutateFunc 在文档副本上执行校验与修改；返回错误则放弃写入
type MutateFunc func(g *model.Group) error

// Coordinator 小组变更协调器
type Coordinator struct {
	store  Store
	locks  *KeyedMutex
	pub    Publisher
	logger *zap.Logger
}

// NewCoordinator 创建协调器，pub 可为 nil
func NewCoordinator(store Store, pub Publisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		locks:  NewKeyedMutex(),
		pub:    pub,
		logger: logger,
	}
}

// Apply 加锁 → 读取最新文档 → 版本检查 → fn → 重建成员索引 → CAS 写回 → 通知
func (c *Coordinator) Apply(ctx context.Context, groupID string, expectedVersion *int, fn MutateFunc) (*model.Group, error) {
	ctx, cancel := Detach(ctx)
	defer cancel()

	unlock, err := c.locks.Lock(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := c.store.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		c.logger.Info("小组版本冲突",
			zap.String("group_id", groupID),
			zap.Int("expected", *expectedVersion),
			zap.Int("actual", current.Version),
		)
		return nil, ErrConflict
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.RebuildMembership()

	if err := c.store.Update(ctx, next); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			c.logger.Info("小组写入 CAS 失败", zap.String("group_id", groupID))
			return nil, ErrConflict
		}
		c.logger.Error("写入小组失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	c.publish(ctx, current, next)
	return next, nil
}

// Delete 加锁后执行 check，再整体删除文档
func (c *Coordinator) Delete(ctx context.Context, groupID string, expectedVersion *int, check MutateFunc) error {
	ctx, cancel := Detach(ctx)
	defer cancel()

	unlock, err := c.locks.Lock(ctx, groupID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := c.store.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return ErrConflict
	}
	if check != nil {
		if err := check(current.Clone()); err != nil {
			return err
		}
	}
	if err := c.store.Delete(ctx, groupID); err != nil {
		c.logger.Error("删除小组失败", zap.String("group_id", groupID), zap.Error(err))
		return err
	}

	c.publish(ctx, current, nil)
	return nil
}

// Created 新建小组后的通知入口（新建不经过 Apply）
func (c *Coordinator) Created(ctx context.Context, g *model.Group) {
	c.publish(ctx, nil, g)
}

func (c *Coordinator) publish(ctx context.Context, before, after *model.Group) {
	if c.pub == nil {
		return
	}
	c.pub.GroupChanged(ctx, before, after)
}
