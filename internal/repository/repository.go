package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口（记录存储适配层）
type Repository struct {
	db *gorm.DB

	Account      AccountRepository
	Identity     IdentityRepository
	Group        GroupRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Account:      NewAccountRepo(db),
		Identity:     NewIdentityRepo(db),
		Group:        NewGroupRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx 开启事务；db 为空（单元测试注入 mock）时返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
