package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"manasa/backend/internal/model"
)

// AccountRepository 账户档案数据访问接口
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	ExistsStudent(ctx context.Context, username string) (bool, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
}

// accountRepo AccountRepository 的 GORM 实现
type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepo 创建 AccountRepository 实例
func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ExistsStudent 用户名是否属于一个学生账户（教师账户不计入）
func (r *accountRepo) ExistsStudent(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ? AND role = ?", strings.ToLower(username), model.RoleStudent).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields 按字段部分更新，不触碰未列出的列
func (r *accountRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
