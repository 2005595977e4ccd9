package repository

import (
	"context"

	"gorm.io/gorm"

	"manasa/backend/internal/model"
)

// IdentityRepository 身份网关记录数据访问接口
type IdentityRepository interface {
	Create(ctx context.Context, identity *model.Identity) error
	GetByLoginID(ctx context.Context, loginID string) (*model.Identity, error)
}

type identityRepo struct {
	db *gorm.DB
}

// NewIdentityRepo 创建 IdentityRepository 实例
func NewIdentityRepo(db *gorm.DB) IdentityRepository {
	return &identityRepo{db: db}
}

func (r *identityRepo) Create(ctx context.Context, identity *model.Identity) error {
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *identityRepo) GetByLoginID(ctx context.Context, loginID string) (*model.Identity, error) {
	var identity model.Identity
	err := r.db.WithContext(ctx).
		Where("login_id = ?", loginID).
		First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}
